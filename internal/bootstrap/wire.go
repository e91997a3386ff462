package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/captcha"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/password"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/retry"
	http_handlers "github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (DBCloser, error)

	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(rabbitURL, exchange string) (Publisher, error)

	NewCaptcha func(cfg captcha.Config) registration.CaptchaVerifier

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type Publisher interface {
	registration.EventPublisher
}

// userStore is what the rest of the graph needs from the primary store.
type userStore interface {
	registration.UserRepo
	Ping(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) primary store
	var store userStore
	if cfg.UseMemDB {
		logger.Logger.Warn().Msg("using in-memory user store; data is lost on restart")
		store = memory.NewUserRepo()
	} else {
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		sqlDB, ok := db.(*sql.DB)
		if !ok {
			return fail(errors.New("bootstrap: NewDB did not return *sql.DB"))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = postgres.Migrate(ctx, sqlDB)
		cancel()
		if err != nil {
			return fail(err)
		}
		store = postgres.NewUserRepo(sqlDB)
	}

	// 2) redis (best-effort)
	var userRepo registration.UserRepo = store
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			if rc, ok := c.(*redis.Client); ok {
				userRepo = redis.NewCachedUserRepo(store, rc, cfg.TakenCacheTTL)
			}
		}
	}

	// 3) publisher
	var pub registration.EventPublisher = memory.NewNoopPublisher()
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			pub = p
			if c, ok := p.(interface{ Close() error }); ok {
				cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			}
		case cfg.Env == "dev":
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		default:
			return fail(err)
		}
	}

	// 4) security
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	if cfg.SeedDemoUsers {
		n := postgres.SeedUsers(context.Background(), userRepo, hasher)
		logger.Logger.Info().Int("created", n).Msg("demo users seeded")
	}

	// 5) validation pipeline
	common := password.DefaultCommonPasswords()
	if cfg.CommonPasswordsFile != "" {
		extra, err := readCommonPasswords(cfg.CommonPasswordsFile)
		if err != nil {
			return fail(err)
		}
		common = append(common, extra...)
		logger.Logger.Info().Int("extra", len(extra)).Msg("common password list extended")
	}
	evaluator := password.NewEvaluator(password.NewPolicy(common))

	captchaCfg := captcha.DefaultConfig(cfg.RecaptchaSecret)
	if cfg.RecaptchaVerifyURL != "" {
		captchaCfg.VerifyURL = cfg.RecaptchaVerifyURL
	}
	captchaCfg.Timeout = cfg.CaptchaTimeout
	captchaCfg.Retry.MaxRetries = cfg.CaptchaMaxRetries
	captchaCfg.Retry.InitialDelay = cfg.CaptchaRetryDelay

	var verifier registration.CaptchaVerifier
	if deps.NewCaptcha != nil {
		verifier = deps.NewCaptcha(captchaCfg)
	} else {
		verifier = captcha.NewClient(captchaCfg, nil, logger.Logger)
	}

	lookup := registration.DefaultLookupPolicy()
	lookup.Timeout = cfg.LookupTimeout
	lookup.Retry = retry.Config{
		MaxRetries:   cfg.LookupMaxRetries,
		InitialDelay: lookup.Retry.InitialDelay,
		MaxDelay:     lookup.Retry.MaxDelay,
	}
	checker := registration.NewStoreChecker(userRepo, lookup)

	shape, err := registration.NewShapeValidator()
	if err != nil {
		return fail(err)
	}

	validator := registration.NewValidator(verifier, checker, evaluator, shape)

	// 6) service
	auditLog := audit.New(logger.Logger)
	svc := registration.NewService(validator, userRepo, hasher, pub).WithAudit(auditLog.Record)

	// 7) handlers + router
	health := http_handlers.NewHealthHandler(store)
	if br, ok := verifier.(http_handlers.BreakerReporter); ok {
		health = health.WithCaptcha(br)
	}
	mux, err := deps.NewRouter(router.Deps{
		Health:      health,
		Register:    http_handlers.NewRegisterHandler(svc),
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: func() (*config.Config, error) {
			if err := config.LoadDotEnv(); err != nil {
				return nil, err
			}
			return config.Load()
		},
		NewDB: func(addr string, debug bool) (DBCloser, error) {
			return config.NewDB(addr, debug)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func readCommonPasswords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open common passwords file: %w", err)
	}
	defer f.Close()

	out, err := password.ReadCommonPasswords(f)
	if err != nil {
		return nil, fmt.Errorf("read common passwords file: %w", err)
	}
	return out, nil
}

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
