package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Dhanush032/Smart-Shopping/internal/cache"
	"github.com/Dhanush032/Smart-Shopping/internal/cart"
	"github.com/Dhanush032/Smart-Shopping/internal/catalog"
	"github.com/Dhanush032/Smart-Shopping/internal/config"
	"github.com/Dhanush032/Smart-Shopping/internal/events"
	"github.com/Dhanush032/Smart-Shopping/internal/httpapi"
	"github.com/Dhanush032/Smart-Shopping/internal/inventory"
	"github.com/Dhanush032/Smart-Shopping/internal/keymutex"
	"github.com/Dhanush032/Smart-Shopping/internal/order"
	"github.com/Dhanush032/Smart-Shopping/internal/storage/memory"
	"github.com/Dhanush032/Smart-Shopping/internal/storage/postgres"
)

// storage gathers the contracts the services need, satisfied by both the
// postgres and the in-memory backend.
type storage interface {
	inventory.Ledger
	cart.Repository
	order.Repository
	order.ProductSource
	catalog.ProductRepository
	catalog.CategoryRepository
	events.Source
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := config.Load()

	var store storage
	switch cfg.Storage {
	case "memory":
		store = memory.NewStore()
		logger.Info("using in-memory storage")
	default:
		pg, err := postgres.NewStore(&postgres.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPassword,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.MigrationsDir,
		})
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.RunMigrations(&postgres.Credentials{MigrationsDirPath: cfg.MigrationsDir}); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		store = pg
		logger.Info("connected to postgres", zap.String("host", cfg.PostgresHost))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	cartCache := cache.NewRedisCartCache(redisClient)
	productCache := cache.NewRedisProductCache(redisClient)

	locks := keymutex.New()

	catalogSvc := catalog.NewService(store, store, productCache, logger)
	cartSvc := cart.NewService(store, catalogSvc, store, cartCache, locks, logger)
	orderSvc := order.NewService(store, store, store, store, cartCache, locks, logger, cfg.ReleaseStockOnCancel)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()

	writer := events.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
	defer writer.Close()
	poller := events.NewPoller(store, writer, logger)
	go poller.Run(pollerCtx)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartSvc),
		httpapi.NewOrderHandler(orderSvc),
		httpapi.NewCatalogHandler(catalogSvc),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	stopPoller()

	logger.Info("server exited")
}
