package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	autopublish "github.com/belonio2793/backlinkoo-solar-system-sub002"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// Options captures configuration for CLI bootstraps.
type Options struct {
	ConfigPath     string
	Driver         string
	DSN            string
	LoggerProvider interfaces.LoggerProvider
	Extra          []autopublish.Option
}

// Module wraps the pipeline module, its database handle and a CLI logger.
type Module struct {
	Module *autopublish.Module
	Config autopublish.Config
	DB     *bun.DB
	Logger interfaces.Logger
}

// Close releases the database handle when one was opened.
func (m *Module) Close() error {
	if m == nil || m.DB == nil {
		return nil
	}
	return m.DB.Close()
}

// LoadConfig reads the config file when a path is given and applies storage overrides.
func LoadConfig(opts Options) (autopublish.Config, error) {
	cfg := autopublish.DefaultConfig()
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		loaded, err := autopublish.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if dsn := strings.TrimSpace(opts.DSN); dsn != "" {
		cfg.Storage.Provider = "bun"
		cfg.Storage.DSN = dsn
	}
	if driver := strings.TrimSpace(opts.Driver); driver != "" {
		cfg.Storage.Driver = driver
	}
	return cfg, cfg.Validate()
}

// BuildModule loads configuration, opens and migrates the database for bun
// storage, and constructs the pipeline.
func BuildModule(ctx context.Context, opts Options) (*Module, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	diOpts := []autopublish.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, autopublish.WithLoggerProvider(opts.LoggerProvider))
	}

	var db *bun.DB
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Provider), "bun") {
		db, err = OpenDB(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		if _, err := autopublish.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		diOpts = append(diOpts, autopublish.WithBunDB(db))
	}
	diOpts = append(diOpts, opts.Extra...)

	module, err := autopublish.New(cfg, diOpts...)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("initialise pipeline: %w", err)
	}

	return &Module{
		Module: module,
		Config: cfg,
		DB:     db,
		Logger: logging.ModuleLogger(module.Container().LoggerProvider(), "autopublish.cli"),
	}, nil
}

// OpenDB opens a bun database for the sqlite or postgres driver.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case "postgres", "pg":
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// SplitList parses a comma separated list into trimmed values.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
