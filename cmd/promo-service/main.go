package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/api"
	"github.com/Cheertaboi/canteen-promo-service/internal/api/middleware"
	"github.com/Cheertaboi/canteen-promo-service/internal/cache"
	"github.com/Cheertaboi/canteen-promo-service/internal/config"
	"github.com/Cheertaboi/canteen-promo-service/internal/repository"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
	"github.com/Cheertaboi/canteen-promo-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	clock := service.SystemClock{}
	promoCache := cache.NewPromotionCache(cfg.PromoCacheTTL, nil)
	catalog := service.NewCatalog(store, promoCache, clock, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	handler := api.NewRouter(api.Deps{
		Catalog:   catalog,
		Selector:  service.NewSelector(catalog, clock, cfg.EvalWorkers, cfg.CurrencyLabel, log),
		Finalizer: service.NewFinalizer(store, promoCache, clock, log),
		Limiter:   limiter,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	log.Info("starting promo-service",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store", cfg.StoreDriver),
		zap.Duration("promo_cache_ttl", cfg.PromoCacheTTL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	log.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pgCfg, err := db.LoadPostgresConfig()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.NewPostgresConnection(ctx, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		log.Info("schema applied")
	}
	return repository.NewPostgresStore(conn), func() { conn.Close() }, nil
}
