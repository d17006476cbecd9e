package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"bookstack-backend/internal/store"
)

// CleanupOldEvents deletes events older than retentionDays from the _events table.
func CleanupOldEvents(ctx context.Context, db *sql.DB, dialect store.Dialect, retentionDays int) {
	pb := dialect.NewParamBuilder()
	whereExpr := dialect.IntervalDeleteExpr("created_at", pb, fmt.Sprintf("%d", retentionDays))
	sqlStr := fmt.Sprintf("DELETE FROM _events WHERE %s", whereExpr)
	result, err := db.ExecContext(ctx, sqlStr, pb.Params()...)
	if err != nil {
		log.Printf("ERROR: audit cleanup: %v", err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("ERROR: audit cleanup rows affected: %v", err)
		return
	}
	if rowsAffected > 0 {
		log.Printf("Audit cleanup: deleted %d old events", rowsAffected)
	}
}

// StartCleanup runs CleanupOldEvents once a day until the context is cancelled.
func StartCleanup(ctx context.Context, db *sql.DB, dialect store.Dialect, retentionDays int) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		CleanupOldEvents(ctx, db, dialect, retentionDays)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CleanupOldEvents(ctx, db, dialect, retentionDays)
			}
		}
	}()
}
