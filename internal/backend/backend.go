// Package backend opens the persistence layer chosen by configuration. The
// choice is made once at startup; everything downstream only sees the
// repository interfaces.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tutor-service/common/metrics"
	"tutor-service/internal/account"
	"tutor-service/internal/auth"
	"tutor-service/internal/config"
	"tutor-service/internal/db"
	"tutor-service/internal/kvstore"
	"tutor-service/internal/lesson"
	"tutor-service/internal/student"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

const (
	KindPostgres = "postgres"
	KindSQLite   = config.LocalDriverSQLite
	KindMemory   = config.LocalDriverMemory
)

type Backend struct {
	Lessons  lesson.Repository
	Students student.Repository
	// Accounts and Tokens are nil in local mode
	Accounts account.Repository
	Tokens   *auth.Repository

	kind   string
	db     *bun.DB
	store  kvstore.Store
	logger *slog.Logger
}

// Models are the tables created in remote mode
func Models() []any {
	return []any{
		(*account.Account)(nil),
		(*auth.RefreshToken)(nil),
		(*lesson.Lesson)(nil),
		(*student.Student)(nil),
	}
}

func Indexes() []db.Index {
	return []db.Index{
		auth.AccountIndex,
		lesson.OwnerDateIndex,
		student.NameIndex,
	}
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Backend, error) {
	if cfg.Storage.Remote {
		database, err := db.New(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return NewRemote(ctx, database, logger, m)
	}

	local := cfg.Storage.Local
	switch local.Driver {
	case config.LocalDriverMemory:
		return NewLocal(KindMemory, kvstore.NewMemory(local.QuotaBytes, m), logger), nil
	case config.LocalDriverSQLite:
		store, err := kvstore.NewSQLite(local.Path, local.QuotaBytes, m, logger)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		return NewLocal(KindSQLite, store, logger), nil
	default:
		return nil, fmt.Errorf("unknown local storage driver %q", local.Driver)
	}
}

// NewRemote migrates database and builds the postgres repositories. The
// backend takes ownership of database.
func NewRemote(ctx context.Context, database *bun.DB, logger *slog.Logger, m *metrics.Metrics) (*Backend, error) {
	if err := db.RunMigrations(ctx, database, Models(), Indexes()); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if err := m.Store.RegisterDB(database.DB, otel.Meter("tutor-service")); err != nil {
		logger.Warn("failed to register connection pool metrics", "error", err)
	}

	logger.Info("remote storage ready", "backend", KindPostgres)
	return &Backend{
		Lessons:  lesson.NewRepository(database, m),
		Students: student.NewRepository(database, m),
		Accounts: account.NewRepository(database, m),
		Tokens:   auth.NewRepository(database, m),
		kind:     KindPostgres,
		db:       database,
		logger:   logger,
	}, nil
}

func NewLocal(kind string, store kvstore.Store, logger *slog.Logger) *Backend {
	logger.Info("local storage ready", "backend", kind)
	return &Backend{
		Lessons:  lesson.NewLocalRepository(store, logger),
		Students: student.NewLocalRepository(store, logger),
		kind:     kind,
		store:    store,
		logger:   logger,
	}
}

func (b *Backend) Remote() bool {
	return b.db != nil
}

// Kind is postgres, sqlite or memory
func (b *Backend) Kind() string {
	return b.kind
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the underlying store; the memory store is always up
func (b *Backend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if b.db != nil {
		return b.db.PingContext(ctx)
	}
	if p, ok := b.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (b *Backend) Close() error {
	var errs []error
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	if b.store != nil {
		errs = append(errs, b.store.Close())
	}
	return errors.Join(errs...)
}
