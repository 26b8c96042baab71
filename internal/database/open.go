package database

import (
	"context"
	"fmt"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/types"
)

// Backend is a link store together with the resources it holds.
type Backend interface {
	InsertIfAbsent(ctx context.Context, link *types.ShortLink) (bool, error)
	Get(ctx context.Context, code string) (*types.ShortLink, error)
	IncrementAndTouch(ctx context.Context, code string, now time.Time) (*types.ShortLink, error)
	Close() error
}

var (
	_ Backend = (*Memory)(nil)
	_ Backend = (*Postgres)(nil)
	_ Backend = (*Redis)(nil)
	_ Backend = (*SQL)(nil)
)

// Open connects the backend selected by cfg.StoreDriver. SQL backends are
// migrated before they are returned.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		backend = NewMemory()
	case config.DriverPostgres:
		backend, err = connectPostgresBackend(ctx, cfg.DatabaseURL)
	case config.DriverRedis:
		backend, err = connectRedisBackend(cfg)
	case config.DriverSQLite, config.DriverMySQL:
		backend, err = openSQLBackend(cfg.StoreDriver, cfg.DatabaseURL)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func connectPostgresBackend(ctx context.Context, url string) (Backend, error) {
	pg, err := ConnectPostgres(ctx, url)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func connectRedisBackend(cfg config.Config) (Backend, error) {
	r, err := ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, WithKeyPrefix(cfg.RedisPrefix))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func openSQLBackend(dialect, dsn string) (Backend, error) {
	s, err := OpenSQL(dialect, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}
