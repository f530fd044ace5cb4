// Command server runs the community auth HTTP API together with the
// notification consumer.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kehila/community-auth/internal/config"
	"github.com/kehila/community-auth/internal/database"
	"github.com/kehila/community-auth/internal/handler"
	"github.com/kehila/community-auth/internal/logger"
	"github.com/kehila/community-auth/internal/middleware"
	"github.com/kehila/community-auth/internal/queue"
	"github.com/kehila/community-auth/internal/repository"
	"github.com/kehila/community-auth/internal/router"
	"github.com/kehila/community-auth/internal/service"
	"github.com/kehila/community-auth/internal/utils"
)

const serviceName = "community-auth"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// Redis only backs the grant cache; without it every request queries
	// the permissions table.
	rdb, err := config.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, grant cache disabled", slog.String("error", err.Error()))
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.NotifyQueue, log)
	go func() {
		outbox := &queue.FileOutbox{Path: "logs/notifications.log"}
		if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, cfg.NotifyQueue, outbox, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification consumer stopped", slog.String("error", err.Error()))
		}
	}()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resets := repository.NewResetTokenRepo(db)
	perms := repository.NewPermissionRepo(db)
	payments := repository.NewPaymentRepo(db)

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	resolver := service.NewPermissionResolver(perms, rdb, cfg.GrantCache, log)
	authSvc := service.NewAuthService(db, users, tokens, resets, resolver,
		utils.NewPasswordHasher(cfg.BcryptCost), issuer, publisher, cfg.ResetTTL, log)
	adminSvc := service.NewAdminService(db, users, log)
	paymentSvc := service.NewPaymentService(payments, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestContext(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	guard := router.NewGuards(issuer, resolver, log)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), handler.NewUserHandler(authSvc), guard)
	router.RegisterAdmin(e, handler.NewAdminHandler(adminSvc), guard)
	router.RegisterPayments(e, handler.NewPaymentHandler(paymentSvc), guard)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", slog.String("error", err.Error()))
	}
}
