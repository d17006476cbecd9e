package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookstack-backend/internal/store"
)

// Buffer collects events in memory and periodically flushes them to the
// _events table in a batch insert.
type Buffer struct {
	mu      sync.Mutex
	events  []Event
	db      *sql.DB
	dialect store.Dialect
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
}

// NewBuffer creates a buffer that flushes on a timer or when full.
func NewBuffer(db *sql.DB, dialect store.Dialect, maxSize int, flushIntervalMs int) *Buffer {
	b := &Buffer{
		db:      db,
		dialect: dialect,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	b.ticker = time.NewTicker(time.Duration(flushIntervalMs) * time.Millisecond)
	go b.run()
	return b
}

func (b *Buffer) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.ticker.C:
			b.Flush()
		}
	}
}

// Record adds an event to the buffer. If the buffer is full, a flush is
// triggered asynchronously.
func (b *Buffer) Record(ctx context.Context, event Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	shouldFlush := len(b.events) >= b.maxSize
	b.mu.Unlock()
	if shouldFlush {
		go b.Flush()
	}
}

// Flush writes all buffered events to the database in a single batch insert.
func (b *Buffer) Flush() {
	b.mu.Lock()
	if len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.events
	b.events = nil
	b.mu.Unlock()

	ctx := context.Background()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("ERROR: audit buffer begin tx: %v", err)
		return
	}
	defer tx.Rollback() //nolint:errcheck

	if off := b.dialect.SyncCommitOff(); off != "" {
		if _, err := tx.ExecContext(ctx, off); err != nil {
			log.Printf("ERROR: audit buffer set sync commit: %v", err)
			return
		}
	}

	cols := []string{"id", "kind", "resource", "operation", "record_id", "subject", "allowed", "reason", "metadata"}
	pb := b.dialect.NewParamBuilder()
	var rows []string
	for _, e := range batch {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		var metaJSON any
		if e.Metadata != nil {
			raw, _ := json.Marshal(e.Metadata)
			metaJSON = string(raw)
		}

		ph := []string{
			pb.Add(e.ID), pb.Add(e.Kind), pb.Add(e.Resource), pb.Add(e.Operation),
			pb.Add(e.RecordID), pb.Add(e.Subject), pb.Add(e.Allowed), pb.Add(e.Reason),
			pb.Add(metaJSON),
		}
		rows = append(rows, "("+strings.Join(ph, ",")+")")
	}

	sqlStr := fmt.Sprintf("INSERT INTO _events (%s) VALUES %s",
		strings.Join(cols, ","), strings.Join(rows, ","))
	if _, err := tx.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		log.Printf("ERROR: audit buffer insert: %v", err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("ERROR: audit buffer commit: %v", err)
	}
}

// Stop halts the background ticker and flushes remaining events.
func (b *Buffer) Stop() {
	if b.ticker != nil {
		b.ticker.Stop()
	}
	close(b.done)
	b.Flush()
}
