package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"chrometour/internal/email"
	"chrometour/internal/events"
	"chrometour/internal/graphql"
	"chrometour/internal/platform/config"
	"chrometour/internal/platform/httpserver"
	"chrometour/internal/platform/logger"
	"chrometour/internal/platform/metrics"
	"chrometour/internal/platform/postgres"
	httptransport "chrometour/internal/transport/http"
	"chrometour/internal/user/service"
	"chrometour/internal/user/store"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages.
func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.UserStoreURL())
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userStore := store.NewPostgres(db)
	if err := userStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	bus := events.New(events.WithLogger(log))

	mailer := email.NewSMTPMailer(cfg.SMTP)
	email.NewListener(mailer,
		email.WithLogger(log),
		email.WithMetrics(m),
	).Register(bus)

	svc, err := service.New(userStore, bus,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build user service", "error", err)
		os.Exit(1)
	}

	schema, err := graphql.NewSchema(svc)
	if err != nil {
		log.Error("failed to build graphql schema", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Schema:      schema,
		HealthCheck: db.PingContext,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting chrome tour api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Let in-flight verification emails finish before the process exits.
		bus.Wait()
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("stopped cleanly")
}
