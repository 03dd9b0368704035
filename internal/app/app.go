// Package app wires configuration, infrastructure and the bank components
// into a ready session manager.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bank_system/internal/access"
	"github.com/congo-pay/bank_system/internal/account"
	"github.com/congo-pay/bank_system/internal/config"
	"github.com/congo-pay/bank_system/internal/credential"
	"github.com/congo-pay/bank_system/internal/infra"
	"github.com/congo-pay/bank_system/internal/notification"
	"github.com/congo-pay/bank_system/internal/otp"
	"github.com/congo-pay/bank_system/internal/phone"
	"github.com/congo-pay/bank_system/internal/ratelimit"
	"github.com/congo-pay/bank_system/internal/session"
	"github.com/congo-pay/bank_system/internal/store"
)

// Deps aggregates the shared dependencies required to build the app. DB,
// Cache and Broker are only needed by the backends that use them.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Broker notification.Channel
	Logger *slog.Logger
	// Out receives console notifications.
	Out io.Writer
	// Rand drives phone seeding, OTP codes and opening balances. Nil means a
	// freshly seeded generator.
	Rand *rand.Rand
}

// App holds the wired components.
type App struct {
	Manager  *session.Manager
	Phones   *phone.Registry
	Accounts *account.Directory
	Matrix   *access.Matrix
	Logger   *slog.Logger

	closers []func() error
}

// Build opens every component on the configured document backend.
func Build(ctx context.Context, d Deps) (*App, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	docs, err := documents(ctx, d)
	if err != nil {
		return nil, err
	}

	hasher, ok := credential.HasherByName(d.Cfg.PasswordHasher, d.Cfg.PBKDF2Iterations)
	if !ok {
		return nil, fmt.Errorf("unknown password hasher %q", d.Cfg.PasswordHasher)
	}
	creds, err := credential.Open(ctx, docs, credential.WithHasher(hasher))
	if err != nil {
		return nil, err
	}
	phones, err := phone.Open(ctx, docs, d.Cfg.PhoneSeedCount, rng)
	if err != nil {
		return nil, err
	}
	if phones.Seeded() {
		d.Logger.Info("phone numbers seeded", slog.String("document", store.DocPhones), slog.Int("count", len(phones.Eligible())))
	}
	accounts, err := account.Open(ctx, docs)
	if err != nil {
		return nil, err
	}
	matrix, err := access.Open(ctx, docs, accounts)
	if err != nil {
		return nil, err
	}

	notifier, err := buildNotifier(d)
	if err != nil {
		return nil, err
	}
	issuer := otp.NewIssuer(notifier, rng, d.Logger, d.Cfg.AppName, d.Cfg.OTPTimeoutHint)

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if d.Cfg.RateLimitMax > 0 {
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when RATE_LIMIT_MAX is set")
		}
		limiter = ratelimit.NewRedisLimiter(d.Cache, d.Cfg.RedisPrefix, d.Cfg.RateLimitMax, d.Cfg.RateLimitWindow)
	}

	mgr := session.NewManager(session.Deps{
		Credentials: creds,
		Phones:      phones,
		OTP:         issuer,
		Matrix:      matrix,
		Accounts:    accounts,
		Limiter:     limiter,
		Rand:        rng,
		Balance:     session.BalancePolicy{Min: d.Cfg.OpeningMin, Max: d.Cfg.OpeningMax},
		Logger:      d.Logger,
	})

	return &App{Manager: mgr, Phones: phones, Accounts: accounts, Matrix: matrix, Logger: d.Logger}, nil
}

func documents(ctx context.Context, d Deps) (store.Documents, error) {
	switch d.Cfg.StoreBackend {
	case config.BackendRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when STORE_BACKEND=redis")
		}
		return store.NewRedisStore(d.Cache, d.Cfg.RedisPrefix), nil
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when STORE_BACKEND=postgres")
		}
		return store.NewPostgresStore(ctx, d.DB)
	case config.BackendFile, "":
		return store.NewFileStore(d.Cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", d.Cfg.StoreBackend)
	}
}

func buildNotifier(d Deps) (notification.Notifier, error) {
	switch d.Cfg.Notifier {
	case config.NotifierLog:
		return notification.NewLoggerNotifier(d.Logger), nil
	case config.NotifierAMQP:
		if d.Broker == nil {
			d.Logger.Warn("amqp broker unavailable, logging notifications instead")
			return notification.NewLoggerNotifier(d.Logger), nil
		}
		n, err := notification.NewAMQPNotifier(d.Broker, d.Cfg.NotifyExchange)
		if err != nil {
			d.Logger.Warn("amqp notifier unavailable, logging notifications instead", slog.Any("error", err))
			return notification.NewLoggerNotifier(d.Logger), nil
		}
		return n, nil
	default:
		out := d.Out
		if out == nil {
			out = io.Discard
		}
		return notification.NewConsoleNotifier(out), nil
	}
}

// Open connects the infrastructure the configuration asks for and builds the
// app on it. Close releases the connections.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) (*App, error) {
	conns, err := infra.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	d := Deps{Cfg: cfg, DB: conns.DB, Cache: conns.Cache, Logger: logger, Out: out}
	if conns.Broker != nil {
		d.Broker = conns.Broker
	}

	a, err := Build(ctx, d)
	if err != nil {
		_ = conns.Close()
		return nil, err
	}
	a.closers = append(a.closers, conns.Close)
	return a, nil
}

// Close releases infrastructure connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
