// Package storage provides the durable key/value local storage used for
// client-side settings and the demo user id.
package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/config"
)

// LocalStorage is a string key/value store with browser localStorage
// semantics: reads of missing keys are not errors.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	Close() error
}

// Open creates the backend selected by cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (LocalStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageFile:
		return NewFile(cfg.StoragePath)
	case config.StorageRedis:
		return NewRedis(ctx, cfg.RedisURL)
	case config.StoragePostgres:
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate("migrations"); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgres(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
