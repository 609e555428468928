package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hxnx/melodybot/internal/logger"
	redislib "github.com/redis/go-redis/v9"
)

var (
	client *redislib.Client
	once   sync.Once
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Init connects once, pinging with exponential backoff before giving up.
func Init(ctx context.Context, cfg Config) (*redislib.Client, error) {
	var initErr error

	once.Do(func() {
		log := logger.Component("redis")
		c := redislib.NewClient(&redislib.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		attempts := 5
		backoff := 200 * time.Millisecond

		for attempt := 1; attempt <= attempts; attempt++ {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.Ping(pingCtx).Err()
			cancel()

			if err == nil {
				client = c
				initErr = nil
				log.Info("redis connected", "addr", cfg.Addr())
				return
			}

			initErr = err
			log.Warn("redis ping failed", "attempt", attempt, "error", err)
			if attempt < attempts {
				select {
				case <-ctx.Done():
					_ = c.Close()
					initErr = ctx.Err()
					return
				case <-time.After(backoff):
				}
				backoff *= 2
			}
		}

		_ = c.Close()
	})

	if client == nil && initErr == nil {
		return nil, errors.New("redis client not initialized")
	}

	return client, initErr
}

func Client() *redislib.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
