package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	v1 "clickpulse/api/v1"
	"clickpulse/internal/analytics"
	"clickpulse/internal/config"
	"clickpulse/internal/dashboard"
	"clickpulse/internal/database"
	"clickpulse/internal/events"
	"clickpulse/internal/geo"
	clickhttp "clickpulse/internal/http"
	"clickpulse/internal/logging"
	"clickpulse/internal/pkg/geoip"
	"clickpulse/internal/privacy"
	"clickpulse/internal/settings"
	"clickpulse/internal/struggle"
)

// Application wires every subsystem for the server binary.
type Application struct {
	Config       *config.Config
	Logger       *slog.Logger
	DBManager    *database.DBManager
	Store        *events.Store
	Enforcer     *privacy.Enforcer
	Orchestrator *dashboard.Orchestrator
	Fiber        *fiber.App
}

// NewApp builds a fully wired application instance.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	geoip.InitLogger(logger)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db := dbManager.GetConnection()
	if err := settings.SetupDefaults(db, logger, map[string]string{
		settings.KeyPrivacySettings: privacy.DefaultSettingsJSON(),
	}); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	store := events.NewStore(db, logger)
	enforcer := privacy.NewEnforcer(db, logger)

	funnels, err := analytics.LoadFunnels(cfg.FunnelsPath)
	if err != nil {
		logger.Warn("Failed to load funnel definitions", slog.Any("error", err))
	}

	resolver := geo.NewResolver(cfg, logger)
	detector := struggle.NewDetector(cfg, logger)
	orchestrator := dashboard.NewOrchestrator(store, funnels, resolver, detector, cfg, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(recover.New())

	handlers := &clickhttp.Handlers{
		Orchestrator: orchestrator,
		Store:        store,
		Enforcer:     enforcer,
		DB:           db,
		Logger:       logger,
	}
	collect := &v1.CollectHandler{Store: store, Logger: logger}
	MountAppRoutes(app, handlers, collect)

	return &Application{
		Config:       cfg,
		Logger:       logger,
		DBManager:    dbManager,
		Store:        store,
		Enforcer:     enforcer,
		Orchestrator: orchestrator,
		Fiber:        app,
	}, nil
}

// Start launches the orchestrator and serves HTTP until Shutdown.
func (a *Application) Start(ctx context.Context) error {
	a.Orchestrator.Start(ctx)

	addr := ":" + a.Config.GetPort()
	a.Logger.Info("Starting server",
		slog.String("addr", addr),
		slog.String("environment", a.Config.Environment))
	return a.Fiber.Listen(addr)
}

// Shutdown stops the HTTP server and background work in order.
func (a *Application) Shutdown() {
	if err := a.Fiber.Shutdown(); err != nil {
		a.Logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	a.Orchestrator.Stop()

	if err := a.DBManager.CheckpointWAL("FULL"); err != nil {
		a.Logger.Warn("Failed to checkpoint WAL on shutdown", slog.Any("error", err))
	}
	a.Logger.Info("Shutdown complete")
}
