package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"                  // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Recover
	"github.com/sirupsen/logrus"

	"github.com/ruet-portal/portal-backend/internal/bootstrap"
	"github.com/ruet-portal/portal-backend/internal/config" // Internal config loader
	"github.com/ruet-portal/portal-backend/internal/database"
	"github.com/ruet-portal/portal-backend/internal/handler"
	"github.com/ruet-portal/portal-backend/internal/logging"
	"github.com/ruet-portal/portal-backend/internal/mail"
	"github.com/ruet-portal/portal-backend/internal/middleware"
	"github.com/ruet-portal/portal-backend/internal/queue"
	"github.com/ruet-portal/portal-backend/internal/repository"
	"github.com/ruet-portal/portal-backend/internal/router" // Internal router setup
	"github.com/ruet-portal/portal-backend/internal/service"
	"github.com/ruet-portal/portal-backend/internal/storage"
)

func main() {
	bootstrap.LoadEnv()
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting per process")
	} else {
		defer rdb.Close()
	}

	var mailer mail.Mailer
	if mc := config.LoadMailConfig(); mc.Enabled() {
		mailer = mail.NewSMTPMailer(mc)
	} else {
		if cfg.Env == "prod" || cfg.Env == "production" {
			log.Fatal("SMTP_HOST is required in production")
		}
		log.Warn("SMTP not configured, OTP emails are logged instead of sent")
		mailer = mail.LogMailer{Log: log}
	}

	var events queue.Publisher = queue.NopPublisher{}
	var eventBuf *queue.AsyncPublisher
	if cfg.AMQPURL != "" {
		amqpPub := queue.NewAMQPPublisher(cfg.AMQPURL, log)
		defer amqpPub.Close()
		eventBuf = queue.NewAsyncPublisher(amqpPub, 256, log)
		events = eventBuf
	}

	students := repository.NewStudentRepo(db)
	librarians := repository.NewLibrarianRepo(db)
	books := repository.NewBookRepo(db, dialect)

	authSvc := service.NewAuthService(service.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		AccessTTL:        cfg.AccessTTL(),
		BcryptCost:       cfg.BcryptCost,
		StudentDomain:    cfg.StudentEmailDomain,
		LibrarianDomain:  cfg.LibrarianEmailDomain,
		DemoStudentEmail: cfg.DemoStudentEmail,
	}, students, librarians, storage.NewPhotoStore(cfg.PhotoDir), mailer, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())

	router.RegisterRoutes(e, router.Handlers{ // Register application routes
		Health:    handler.NewHealthHandler(db),
		Auth:      handler.NewAuthHandler(authSvc),
		Students:  handler.NewStudentHandler(service.NewStudentService(students)),
		Library:   handler.NewLibraryHandler(service.NewLibraryService(books, students, events, log)),
		AuthLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		JWTSecret: cfg.JWTSecret,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": string(dialect)}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if eventBuf != nil {
		if err := eventBuf.Close(ctx); err != nil {
			log.WithError(err).Warn("pending library events not flushed")
		}
	}
}
