package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/internal/config"
	"github.com/jakechorley/vacancy-cascade/pkg/clients/sheetsclient"
	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
	"github.com/jakechorley/vacancy-cascade/pkg/loader"
	"github.com/jakechorley/vacancy-cascade/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands.
// The sheets client and the run store are created on first use, so commands that
// read local files never need OAuth or a database.
type AppContext struct {
	Env    string
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context

	sheetsClient *sheetsclient.Client
	store        db.RunStore
	closeStore   func()
}

// SheetsClient returns the Google Sheets client, authenticating on first use
func (app *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if app.sheetsClient != nil {
		return app.sheetsClient, nil
	}

	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	app.sheetsClient = client
	return client, nil
}

// InputSource returns the configured source of capacities, roster and preferences.
// A non-empty path overrides the configured source with a file or directory.
func (app *AppContext) InputSource(path string) (services.InputSource, error) {
	if path != "" {
		return loader.NewFileSource(path, app.Logger), nil
	}

	switch app.Cfg.InputSource {
	case "files":
		return loader.NewFileSource(app.Cfg.DataDir, app.Logger), nil
	case "sheets":
		client, err := app.SheetsClient()
		if err != nil {
			return nil, err
		}
		return sheetsclient.NewInputSource(client, app.Cfg.InputSheetID, sheetsclient.Tabs{
			Capacities:  app.Cfg.CapacitiesTab,
			Roster:      app.Cfg.RosterTab,
			Preferences: app.Cfg.PreferencesTab,
		}, app.Logger), nil
	}
	return nil, fmt.Errorf("unknown input source %q", app.Cfg.InputSource)
}

// Store returns the run history store. Without a database URL runs are kept in memory
// for the life of the process.
func (app *AppContext) Store() (db.RunStore, error) {
	if app.store != nil {
		return app.store, nil
	}

	if app.Cfg.DatabaseURL == "" {
		app.Logger.Warn("No databaseURL configured, run history will not outlive this process")
		app.store = db.NewMemoryStore()
		return app.store, nil
	}

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(app.Ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Logger.Info("Database initialized successfully")

	app.store = database
	app.closeStore = database.Close
	return app.store, nil
}

// Mode resolves a --mode flag value, falling back to the configured mode
func (app *AppContext) Mode(flagValue string) (model.Mode, error) {
	if flagValue == "" {
		flagValue = app.Cfg.Mode
	}
	return model.ParseMode(flagValue)
}

// Close releases the database pool if one was opened
func (app *AppContext) Close() {
	if app.closeStore != nil {
		app.closeStore()
		app.closeStore = nil
	}
}
