package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"bookstack-backend/internal/admin"
	"bookstack-backend/internal/audit"
	"bookstack-backend/internal/auth"
	"bookstack-backend/internal/catalog"
	"bookstack-backend/internal/config"
	"bookstack-backend/internal/engine"
	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/policy"
	"bookstack-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap schema and system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap database: %v", err)
	}
	log.Println("Schema ready")

	if cfg.Seed {
		if err := db.Seed(ctx); err != nil {
			log.Fatalf("Failed to seed catalog data: %v", err)
		}
	}

	// 4. Load catalog metadata
	reg := metadata.NewRegistry()
	catalog.LoadMetadata(reg)

	// 5. Build and freeze the access policy registry. Any registration
	// problem is a startup failure, never a runtime surprise.
	policies := policy.NewRegistry()
	if err := catalog.RegisterPolicies(policies); err != nil {
		log.Fatalf("Failed to register access policies: %v", err)
	}
	policies.Freeze()
	log.Printf("Access policies frozen (%d resources)", len(policies.Resources()))

	// 6. Audit recorder
	var recorder audit.Recorder = audit.Noop{}
	var buffer *audit.Buffer
	if cfg.Audit.Enabled {
		buffer = audit.NewBuffer(db.DB, db.Dialect, cfg.Audit.BufferSize, cfg.Audit.FlushIntervalMs)
		defer buffer.Stop()
		recorder = buffer
		audit.StartCleanup(ctx, db.DB, db.Dialect, cfg.Audit.RetentionDays)
	}

	// 7. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 8. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 9. Auth routes (no auth required)
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	auth.RegisterAuthRoutes(app, authHandler, cfg.JWTSecret)

	// 10. Middleware: every catalog request resolves to a policy context,
	// anonymous included. Admin surfaces additionally require the role.
	authMW := auth.Authenticate(cfg.JWTSecret)
	adminMW := auth.RequireAdmin()

	// 11. Admin introspection routes
	adminHandler := admin.NewHandler(reg, policies)
	admin.RegisterAdminRoutes(app, adminHandler, authMW, adminMW)

	// 12. Audit log routes
	auditHandler := audit.NewHandler(db.DB, db.Dialect)
	events := app.Group("/api/_events", authMW, adminMW)
	events.Get("/", auditHandler.List)

	// 13. Catalog entity routes
	engineHandler := engine.NewHandler(db, reg, policies, recorder)
	engine.RegisterDynamicRoutes(app, engineHandler, authMW)

	// 14. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(engine.ErrorResponse{
		Error: &engine.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
