package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-bookstore/internal/cart"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/handler"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/sales"
	"github.com/safar/go-bookstore/internal/session"
	"github.com/safar/go-bookstore/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}
	config.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.Server.Mode)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Fatal(err.Error())
	}
	defer db.Close()

	if cfg.Database.SkipMigrations {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping migrations on startup")
	} else {
		ran, err := database.RunMigrations(sigCtx, db, cfg.Database.MigrationsDir, database.MigrateUp)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
		logger.WithFields(logrus.Fields{"field": "migrations", "files": len(ran)}).Info("migrations applied")
	}

	created, err := store.EnsureAdmin(sigCtx, db, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "bootstrap"}).Fatal(err.Error())
	}
	if created {
		logger.WithFields(logrus.Fields{"field": "bootstrap", "email": cfg.Bootstrap.AdminEmail}).Warn("created initial administrator; change its password")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(sigCtx).Err(); err != nil {
		logger.WithFields(logrus.Fields{"field": "redis"}).Fatal(err.Error())
	}

	sessions := session.NewManager(session.NewRedisStore(rdb, cfg.Session.TTL), &cfg.Session)
	carts := cart.NewManager(
		cart.NewRedisStore(rdb, cfg.Session.TTL),
		func(ctx context.Context, id uuid.UUID) (*models.Book, error) {
			return store.GetBook(ctx, db, id)
		},
		cfg.Sales.TaxRate,
	)
	processor := sales.NewProcessor(db, carts, cfg.Sales.TaxRate)

	r := gin.New()
	r.Use(correlationID())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(&cfg.Server)))
	r.Use(sessions.Middleware())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	handler.New(handler.Deps{
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Carts:    carts,
		Sales:    processor,
		Config:   cfg,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"field": "http", "port": cfg.Server.Port}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
