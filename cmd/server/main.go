package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/token"
	"github.com/iliyamo/account-service/internal/utils"
)

func main() {
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	if cfg.Env == "dev" {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.HTTPErrorHandler = handler.ErrorHandler(e.Logger)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		e.Logger.Fatalf("db open: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		e.Logger.Fatalf("db migrate: %v", err)
	}
	cancel()

	// Redis is optional: nil disables the rate limiter and cache and keeps
	// revocations in MySQL.
	rdb := config.NewRedisClient()
	if rdb == nil {
		e.Logger.Warn("redis unavailable; rate limiting and stats cache disabled")
	} else {
		defer rdb.Close()
	}

	var revocations token.RevocationStore = repository.NewRevokedTokenRepo(db)
	if cfg.RevocationBackend == "redis" {
		if rdb != nil {
			revocations = token.NewRedisRevocationStore(rdb, "revoked")
		} else {
			e.Logger.Warn("REVOCATION_BACKEND=redis but redis is unavailable; using mysql")
		}
	}

	tokCfg := token.Config{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	issuer, err := token.NewIssuer(tokCfg)
	if err != nil {
		e.Logger.Fatalf("token issuer: %v", err)
	}
	validator, err := token.NewValidator(tokCfg, revocations)
	if err != nil {
		e.Logger.Fatalf("token validator: %v", err)
	}

	users := repository.NewUserRepo(db)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:       users,
		Hasher:      hasher,
		Issuer:      issuer,
		Validator:   validator,
		Revocations: revocations,
		Notifier:    queue.NewPublisher(cfg.AMQPURL, cfg.WelcomeQueue),
		Log:         e.Logger,
		FrontendURL: cfg.FrontendURL,
	})
	userSvc := service.NewUserService(users, hasher, e.Logger)

	router.Register(e, router.Deps{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Validator:  validator,
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		StatsCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	go queue.StartWelcomeConsumer(ctx, cfg.AMQPURL, cfg.WelcomeQueue, queue.NewFileMailer(cfg.MailLogDir), e.Logger)
	go service.RunRevocationSweeper(ctx, revocations, cfg.SweepInterval, e.Logger)

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
}
