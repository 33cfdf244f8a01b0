package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"nemsutalks/internal/ratelimit"
	"nemsutalks/internal/util"
	"nemsutalks/pkg/ai"
	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/events"
	"nemsutalks/pkg/session"
	"nemsutalks/pkg/storage"
	"nemsutalks/pkg/store"
	"nemsutalks/services/portal/internal/app"
	"nemsutalks/services/portal/internal/config"
	"nemsutalks/services/portal/internal/security"
	"nemsutalks/services/portal/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("portal stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		return err
	}
	leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		return err
	}

	backend, err := storage.Open(storage.Config{
		Driver:         cfg.Storage.Driver,
		Dir:            cfg.Storage.Dir,
		SQLitePath:     cfg.Storage.SQLitePath,
		DatabaseURL:    cfg.DatabaseURL,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisPrefix:    cfg.Storage.RedisPrefix,
		MinioEndpoint:  cfg.Storage.MinioEndpoint,
		MinioAccessKey: cfg.Storage.MinioAccessKey,
		MinioSecretKey: cfg.Storage.MinioSecretKey,
		MinioBucket:    cfg.Storage.MinioBucket,
		MinioUseSSL:    cfg.Storage.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := storage.Close(backend); err != nil {
			logger.Error("close storage", "err", err)
		}
	}()

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var revoker session.TokenRevoker = session.NewMemoryTokenRevoker()
	if rdb != nil {
		revoker = session.NewRedisTokenRevoker(rdb, "", sessionTTL)
	}
	sessions, err := session.NewManager(cfg.SessionSecret, sessionTTL, revoker, session.Options{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   leeway,
	})
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	generator, err := ai.NewGenerator(ai.GeneratorConfig{
		Provider: cfg.AI.Provider,
		BaseURL:  cfg.AI.BaseURL,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
	})
	if err != nil {
		return fmt.Errorf("init ai: %w", err)
	}

	var publishers []events.Publisher
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("init amqp: %w", err)
		}
		publishers = append(publishers, p)
	}
	if rdb != nil {
		p, err := events.NewStreamPublisher(rdb, cfg.NotificationStream, 0)
		if err != nil {
			for _, opened := range publishers {
				_ = opened.Close()
			}
			return fmt.Errorf("init notification stream: %w", err)
		}
		publishers = append(publishers, p)
	}
	dispatcher := events.NewDispatcher(logger, publishers...)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("close notification publishers", "err", err)
		}
	}()

	padding := store.StatsPadding{}
	if cfg.DisplayPadding {
		padding = store.DisplayPadding
	}
	appCore, err := app.New(app.Config{
		Backend:      backend,
		Sessions:     sessions,
		Generator:    generator,
		StatsPadding: padding,
		SeedDemoData: cfg.SeedDemoData,
		Observers:    []func(domain.Notification){dispatcher.Enqueue},
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := appCore.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	loginLimiter, registerLimiter, err := newLimiters(rdb, cfg)
	if err != nil {
		return err
	}
	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}
	httpServer, err := server.New(server.Config{
		App:             appCore,
		LoginLimiter:    loginLimiter,
		RegisterLimiter: registerLimiter,
		CORSOrigins:     cfg.CORSOrigins,
		TrustedProxies:  proxies,
		Alerter:         security.NewAuditAlerter(rdb, ""),
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		logger.Info("portal listening", "addr", addr, "storage", cfg.Storage.Driver, "ai", cfg.AI.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), appCore.Close(shutdownCtx))
	})
	return g.Wait()
}

// newLimiters shares quotas across instances through Redis when it is
// configured. A zero limit disables the limiter.
func newLimiters(rdb redis.UniversalClient, cfg config.FileConfig) (ratelimit.Limiter, ratelimit.Limiter, error) {
	build := func(name string, limit int) (ratelimit.Limiter, error) {
		if limit == 0 {
			return nil, nil
		}
		if rdb != nil {
			l, err := ratelimit.NewRedisFixedWindow(rdb, "nemsutalks:ratelimit:"+name, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return l, nil
		}
		l, err := ratelimit.NewMemoryFixedWindow(limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return l, nil
	}
	login, err := build("login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		return nil, nil, err
	}
	register, err := build("register", cfg.RegisterRateLimitPerMinute)
	if err != nil {
		return nil, nil, err
	}
	return login, register, nil
}
