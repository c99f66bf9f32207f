package gate

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/reusemarket/gate/tokenstore"
)

// OpenStore constructs the token store selected by cfg. The returned close
// function releases backend connections and is never nil.
func OpenStore(cfg StoreConfig) (tokenstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case StoreMemory:
		return tokenstore.NewMemoryStore(), noop, nil
	case StoreFile, "":
		path := cfg.FilePath
		if path == "" {
			p, err := tokenstore.DefaultFilePath()
			if err != nil {
				return nil, noop, err
			}
			path = p
		}
		return tokenstore.NewFileStore(path), noop, nil
	case StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return tokenstore.NewRedisStore(rdb, cfg.RedisPrefix, cfg.RedisTTL), rdb.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown Store.Backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
