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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skillvouch/skillvouch/config"
	"github.com/skillvouch/skillvouch/internal/application"
	"github.com/skillvouch/skillvouch/internal/domain/repository"
	"github.com/skillvouch/skillvouch/internal/infrastructure/memory"
	"github.com/skillvouch/skillvouch/internal/infrastructure/sqlite"
	"github.com/skillvouch/skillvouch/internal/interface/middleware"
	"github.com/skillvouch/skillvouch/internal/router"
	"github.com/skillvouch/skillvouch/pkg/helpers"
	"github.com/skillvouch/skillvouch/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	// Storage backend: embedded sqlite by default, memory for ephemeral runs.
	var store repository.UserStore
	switch cfg.StoreBackend {
	case "memory":
		store = memory.NewStore()
		logger.Warn("using in-memory store, data will not survive restarts")
	default:
		s, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer func() { _ = s.Close() }()
		logger.WithField("path", s.Path()).Info("sqlite store ready")
		store = s
	}

	// Redis backs the rate limiters; everything fails open without it.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
	}

	// Elasticsearch backs user search; the service scans the store without it.
	var es *elasticsearch.Client
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		c, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		es = c
	}

	svc := application.NewService(store, application.SystemClock{}, application.UUIDSupplier{}, logger, es, cfg.ESUsersIndex)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, router.Deps{
		Service:      svc,
		Logger:       logger,
		Redis:        rdb,
		DebugMetrics: cfg.DebugMetricsEnabled,
	})
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}
