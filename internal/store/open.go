// Package store opens the index store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/postgres"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/store/sqlite"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/postgres"
	pkgsqlite "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/sqlite"
)

func Open(ctx context.Context, cfg *config.Config) (index.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory, "":
		slog.Warn("using in-memory index store; the index is lost on exit")
		return memory.New(), nil
	case config.DriverSQLite:
		db, err := pkgsqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		slog.Info("index store opened", "driver", "sqlite", "path", cfg.SQLite.Path)
		return sqlite.New(db), nil
	case config.DriverPostgres:
		db, err := pkgpostgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		slog.Info("index store opened", "driver", "postgres",
			"host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
