package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"survey-backend/config"
	"survey-backend/controllers"
	"survey-backend/database"
	"survey-backend/middlewares"
	"survey-backend/routes"
	"survey-backend/submission"
)

func main() {
	issueToken := flag.String("issue-admin-token", "", "print a 24h admin JWT for the given subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg)

	if *issueToken != "" {
		token, err := middlewares.GenerateAdminJWT(*issueToken, cfg.AdminJWTSecret, 24*time.Hour)
		if err != nil {
			log.WithError(err).Fatal("could not issue admin token")
		}
		fmt.Println(token)
		return
	}

	// ---- Database
	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	store := database.NewStore(db)

	// ---- Core
	opts := []submission.Option{
		submission.WithScoringRules(submission.DefaultScoringRules().WithReversed(cfg.ReversedScales...)),
		submission.WithUnsetStatusOpen(cfg.UnsetStatusOpen),
		submission.WithExactQuestionSet(cfg.QuestionSet == config.QuestionSetExact),
	}
	coord := submission.NewCoordinator(store, opts...)
	sweeper := database.NewOrphanSweeper(store, cfg.OrphanGrace, cfg.SweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(ctx)

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(middlewares.RequestID())
	app.Use(middlewares.RequestLogger())

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // bearer tokens only, no cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (per client IP)
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
	}))

	// ---- Routes
	routes.Register(app, routes.Deps{
		Submissions:      controllers.NewSubmissionController(coord),
		Admin:            controllers.NewAdminController(sweeper),
		Idempotency:      store,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		IdempotencyLease: cfg.IdempotencyLease,
		AdminJWTSecret:   cfg.AdminJWTSecret,
	})
	if cfg.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}

	// ---- Start
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"port": cfg.Port, "driver": cfg.DBDriver}).Info("API server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogging(cfg config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
}
