package config

import (
	"context"

	"github.com/redis/go-redis/v9"

	"civicsync/storage"
)

// OpenStorage opens the key-value driver named by STORAGE_DRIVER. The Redis
// client is returned as well when one was created so the rate limiter can
// share it; it is nil otherwise.
func OpenStorage(ctx context.Context, cfg Config) (storage.KeyValue, *redis.Client, error) {
	switch cfg.StorageDriver {
	case DriverRedis:
		client, err := ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client), client, nil
	case DriverMongo:
		db, err := ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMongo(db), nil, nil
	case DriverMemory:
		return storage.NewMemory(), nil, nil
	default:
		kv, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	}
}
