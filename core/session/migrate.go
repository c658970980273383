package session

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the bundled schema migrations with goose. It manages the
// default sessions table; a store pointed at a custom table via
// WithPostgresTable is expected to have its schema managed by the
// application's own migrations.
func (ps *PostgresStore[Data]) Migrate(ctx context.Context) error {
	// goose speaks database/sql, so bridge the pgx pool through stdlib.
	// The wrapper shares the pool's connections and must not be closed here.
	db := stdlib.OpenDBFromPool(ps.pool)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{ps.logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigration, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrMigration, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

func (g *gooseLogger) Fatalf(format string, args ...any) {
	// goose propagates the error; logging is enough here.
	g.log.Error(fmt.Sprintf(format, args...))
}
