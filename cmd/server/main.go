package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"memberzone/docs"
	"memberzone/internal/auth"
	"memberzone/internal/cache"
	"memberzone/internal/config"
	"memberzone/internal/db"
	"memberzone/internal/handler"
	"memberzone/internal/metrics"
	"memberzone/internal/repository"
	"memberzone/internal/router"
	"memberzone/internal/service"
	"memberzone/internal/session"
	"memberzone/internal/validation"
	"memberzone/internal/view"
)

// @title Memberzone API
// @version 1.0
// @description Session and member listing API for the Memberzone site.
// @host localhost:3005
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name sid
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	if cfg.ResetDB {
		logger.Warn("RESET_DB set, dropping tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		return err
	}

	var store session.Store
	if cfg.RedisAddr != "" {
		cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cacheClient.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := cacheClient.Ping(ctx)
		cancel()
		if err != nil {
			return err
		}
		store = session.NewRedisStore(cacheClient)
	} else {
		logger.Warn("REDIS_ADDR empty, sessions kept in memory")
		store = session.NewMemoryStore(nil)
	}

	manager := session.NewManager(store,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(logger.Named("session")),
	)
	if cfg.InsecureSecret() {
		logger.Warn("SESSION_SECRET is the built-in default, session cookies can be forged; set it before deploying")
	}
	tokens := auth.NewJWTService(cfg.SessionSecret)
	sessions := auth.NewSessions(tokens, manager, cfg.CookieSecure, logger.Named("cookie"))
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, cfg.HashConcurrency)

	userRepo := repository.NewUserRepository(gormDB)

	authService := service.NewAuthService(userRepo, hasher, manager, validation.New(), logger.Named("auth"))
	userService := service.NewUserService(userRepo, manager, cfg.RolePropagation, logger.Named("users"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		return err
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	router.Register(e, cfg, logger, registry, sessions, router.Handlers{
		Pages: handler.NewPageHandler(auth.NewGate(manager)),
		Auth:  handler.NewAuthHandler(authService, sessions, logger.Named("auth")),
		Users: handler.NewUserHandler(userService, sessions),
		API:   handler.NewAPIHandler(userService),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
