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

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	router "shuttlebook/internal/http"
	h "shuttlebook/internal/http/handlers"
	"shuttlebook/internal/payment"
	"shuttlebook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("shuttlebook", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "YAML config file (defaults to $CONFIG_FILE)")
	migrate := flagSet.Bool("migrate", true, "create missing tables on startup")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	env, err := intconfig.Load(*configPath)
	if err != nil {
		return err
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env.DBDSN)
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if err := intdb.EnsureSchema(ctx, db); err != nil {
			return err
		}
	}

	broker := services.NewTripBroker()
	closing := make(chan struct{})
	r := router.NewRouter(h.API{
		Env:     env,
		DB:      db,
		Broker:  broker,
		Gateway: payment.NewHTTPGateway(env.PaymentBaseURL, env.PaymentSecretKey),
		Closing: closing,
	})

	// WriteTimeout stays zero: trip streams are long-lived responses.
	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() { close(closing) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[HTTP] listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return services.HoldReaper{DB: db, Interval: env.ReaperInterval, Broker: broker}.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[HTTP] shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("[HTTP] stopped cleanly")
	return nil
}
