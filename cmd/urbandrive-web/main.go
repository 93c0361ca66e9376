package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/bank"
	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/checkout"
	"github.com/andreasstove999/urbandrive/web-go/internal/config"
	"github.com/andreasstove999/urbandrive/web-go/internal/db"
	"github.com/andreasstove999/urbandrive/web-go/internal/events"
	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/session"
	"github.com/andreasstove999/urbandrive/web-go/internal/web"
)

func main() {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.JSONFormatter{})
	logger := base.WithField("service", "urbandrive-web")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		base.SetLevel(lvl)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Base HTTP client (shared)
	sharedHTTP := &http.Client{Timeout: cfg.UpstreamTimeout}

	gw := gateway.New(gateway.Options{
		BaseURL:        cfg.SOAPBaseURL,
		Namespace:      cfg.SOAPNamespace,
		HTTP:           sharedHTTP,
		PaymentTimeout: cfg.PaymentTimeout,
		Logger:         logger,
	})
	bankClient := bank.NewClient(cfg.BankURL, sharedHTTP)

	var healthProbes []web.HealthProbe
	for _, c := range gw.Services() {
		healthProbes = append(healthProbes, web.HealthProbe{Name: c.Name, Check: c.Ping})
	}

	var store checkout.Store
	if cfg.DatabaseDSN != "" {
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				logger.WithError(err).Fatal("run migrations")
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.WithError(err).Fatal("open database")
		}
		defer pool.Close()
		store = checkout.NewPostgresStore(pool)
		healthProbes = append(healthProbes, web.HealthProbe{Name: "checkout-db", Check: pool.Ping})
	} else {
		logger.Warn("DATABASE_DSN not set, checkout sagas are kept in memory")
		store = checkout.NewMemoryStore()
	}

	var publisher checkout.Publisher = events.LogPublisher{Logger: logger.WithField("component", "events")}
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.WithError(err).Fatal("connect to broker")
		}
		defer conn.Close()
		rp, err := events.NewRabbitPublisher(conn)
		if err != nil {
			logger.WithError(err).Fatal("create event publisher")
		}
		defer func() {
			if err := rp.Close(); err != nil {
				logger.WithError(err).Warn("publisher close")
			}
		}()
		publisher = rp
	}

	co := checkout.NewService(store, gw, bankClient, checkout.Options{
		MerchantNationalID: cfg.MerchantNationalID,
		TaxRate:            cfg.TaxRate,
		PaymentTimeout:     cfg.PaymentTimeout,
		MaxAttempts:        cfg.CheckoutMaxAttempts,
		Logger:             logger,
	})
	relay := checkout.NewRelay(co, publisher, cfg.RelayInterval)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	router, err := web.NewRouter(web.Deps{
		Logger:       logger,
		Accounts:     gw,
		Bookings:     booking.NewService(gw, co, cfg.TaxRate, logger),
		Sessions:     session.New(cfg.SessionLifetime, cfg.SessionSecureCookie),
		HealthProbes: healthProbes,
	})
	if err != nil {
		logger.WithError(err).Fatal("build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// Leaves room for the payment timeout plus the post-transfer steps.
		WriteTimeout: cfg.PaymentTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("server error")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown error")
	}
	<-relayDone
	logger.Info("shutdown complete")
}
