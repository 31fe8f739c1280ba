package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/db"
	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/config"
	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/events"
	httpserver "github.com/Clark-Hu/mangareview/internal/http"
	"github.com/Clark-Hu/mangareview/internal/logging"
	"github.com/Clark-Hu/mangareview/internal/metrics"
	"github.com/Clark-Hu/mangareview/internal/repository"
	"github.com/Clark-Hu/mangareview/internal/service"
	"github.com/Clark-Hu/mangareview/internal/store"
	"github.com/Clark-Hu/mangareview/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(dbCtx, st.Pool()); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	err = metrics.RegisterPoolGauges(prometheus.DefaultRegisterer, func() metrics.PoolStat {
		if stat := st.Stats(); stat != nil {
			return stat
		}
		return nil
	})
	if err != nil {
		return err
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			// Events are informational; serve without them.
			logger.Warn("rating events disabled", zap.Error(err))
		} else {
			defer func() { _ = nc.Drain() }()
			publisher = events.NewPublisher(nc, cfg.NATSSubject, logger)
			logger.Info("publishing rating events", zap.String("subject", cfg.NATSSubject))
		}
	}

	tokens := auth.TokenService{
		Secret: []byte(cfg.JWTSecret),
		Issuer: "mangareview",
		TTL:    cfg.JWTTTL(),
	}
	svc := service.New(service.Deps{
		Tx:        st,
		Repo:      repository.New(st),
		Validator: validation.New(domain.Genres, nil),
		Tokens:    tokens,
		Events:    publisher,
		Logger:    logger,
	})

	if cfg.AdminUsername != "" {
		if err := svc.EnsureAdmin(dbCtx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
		logger.Info("admin account ensured", zap.String("username", cfg.AdminUsername))
	}

	server := httpserver.New(cfg, st, svc, tokens, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
