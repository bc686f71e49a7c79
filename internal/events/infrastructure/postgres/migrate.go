package postgres

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/eventhive/pkg/pgmigrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationLockID int64 = 472031877

// Migrate applies the events schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgmigrate.Apply(ctx, pool, migrationFiles, migrationLockID)
}
