package infra

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bank_system/internal/config"
)

// Connections holds the infrastructure the configuration asked for. Unused
// fields stay nil.
type Connections struct {
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Broker *AMQPChannel
}

// Connect opens only what the configuration needs: Postgres for the postgres
// store, Redis for the redis store or rate limiting, and a broker channel for
// the amqp notifier. A broker that cannot be reached is logged and left nil so
// notifications fall back to the log; the other failures are returned.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Connections, error) {
	c := &Connections{}

	if cfg.StoreBackend == config.BackendPostgres {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.DB = db
	}

	if cfg.NeedsRedis() {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Cache = cache
	}

	if cfg.Notifier == config.NotifierAMQP {
		broker, err := NewAMQPChannel(cfg.AMQPURL)
		if err != nil {
			if logger != nil {
				logger.Warn("connect amqp", slog.Any("error", err))
			}
		} else {
			c.Broker = broker
		}
	}
	return c, nil
}

// Close releases every open connection in reverse order of opening.
func (c *Connections) Close() error {
	var errs []error
	if c.Broker != nil {
		errs = append(errs, c.Broker.Close())
		c.Broker = nil
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
		c.Cache = nil
	}
	if c.DB != nil {
		c.DB.Close()
		c.DB = nil
	}
	return errors.Join(errs...)
}
