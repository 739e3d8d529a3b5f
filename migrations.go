package autopublish

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrate applies pending embedded migrations and returns the names it ran.
func Migrate(ctx context.Context, db *bun.DB) ([]string, error) {
	sub, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return nil, err
	}
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return nil, fmt.Errorf("autopublish: discover migrations: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("autopublish: init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("autopublish: migrate: %w", err)
	}
	if group.IsZero() {
		return nil, nil
	}
	applied := make([]string, 0, len(group.Migrations))
	for _, migration := range group.Migrations {
		applied = append(applied, migration.String())
	}
	return applied, nil
}
