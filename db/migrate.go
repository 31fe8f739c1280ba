// Package db embeds the SQL schema migrations and applies them in order.
package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UpFiles returns the names of the up migrations in apply order.
func UpFiles() ([]string, error) {
	names, err := fs.Glob(migrations, "migrations/*_*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies every up migration. The statements are idempotent, so
// running it against an already migrated database is a no-op.
func Migrate(ctx context.Context, db Execer) error {
	names, err := UpFiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no migration files found")
	}
	for _, name := range names {
		payload, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(payload)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
