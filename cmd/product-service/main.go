package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sit722-devops/week07/internal/httpx"
	"github.com/sit722-devops/week07/internal/logging"
	"github.com/sit722-devops/week07/internal/product/consumer"
	producthttp "github.com/sit722-devops/week07/internal/product/http"
	"github.com/sit722-devops/week07/internal/product/repository"
	"github.com/sit722-devops/week07/internal/product/service"
	"github.com/sit722-devops/week07/internal/product/storage"
	"github.com/sit722-devops/week07/internal/tracing"

	productcache "github.com/sit722-devops/week07/internal/product/cache"
)

type Config struct {
	HTTPPort        string
	PostgresHost    string
	PostgresPort    int
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	MigrationsPath  string
	RedisAddr       string
	KafkaBrokers    string
	AzureAccount    string
	AzureKey        string
	AzureContainer  string
	AzureSASExpiry  time.Duration
	OtelEndpoint    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8000"),
		PostgresHost:    getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:    getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:      getEnv("POSTGRES_DB", "products"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./internal/product/repository/migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		AzureAccount:    getEnv("AZURE_STORAGE_ACCOUNT_NAME", ""),
		AzureKey:        getEnv("AZURE_STORAGE_ACCOUNT_KEY", ""),
		AzureContainer:  getEnv("AZURE_STORAGE_CONTAINER_NAME", "product-images"),
		AzureSASExpiry:  time.Duration(getEnvInt("AZURE_SAS_TOKEN_EXPIRY_HOURS", 24)) * time.Hour,
		OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func main() {
	cfg := loadConfig()
	logger := logging.New(logging.Options{
		Service: "product-service",
		Verbose: getEnv("LOG_LEVEL", "info") == "debug",
	})
	logger.Info("product-service starting", "port", cfg.HTTPPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "product-service", cfg.OtelEndpoint)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	creds := &repository.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations completed")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := productcache.NewRedisCache(redisClient)

	svc := service.NewProductService(repo, cache, logger)

	var images storage.ImageStore
	if cfg.AzureAccount != "" && cfg.AzureKey != "" {
		images, err = storage.NewAzureStore(storage.AzureConfig{
			AccountName: cfg.AzureAccount,
			AccountKey:  cfg.AzureKey,
			Container:   cfg.AzureContainer,
			SASExpiry:   cfg.AzureSASExpiry,
		})
		if err != nil {
			logger.Error("failed to init azure store", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("azure storage not configured, image uploads disabled")
		images = storage.Disabled{}
	}

	handler := producthttp.NewProductHandler(svc, images, cfg.RequestTimeout)

	// Stock deduction consumer
	var wg sync.WaitGroup
	orderConsumer := consumer.NewConsumer(svc, logger, cfg.KafkaBrokers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderConsumer.Run(ctx)
	}()

	metrics := httpx.NewMetrics("product-service", prometheus.DefaultRegisterer)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{product_id}", handler.Get)
		r.Put("/{product_id}", handler.Update)
		r.Delete("/{product_id}", handler.Delete)
		r.Post("/{product_id}/image", handler.UploadImage)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "product-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	orderConsumer.Close()
	wg.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
