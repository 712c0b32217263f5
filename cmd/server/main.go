package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Chat/internal/adapters/http"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context) error {
	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})

	cfg, err := config.LoadAndWatch(func(next *config.Config) {
		o.SetNotifyUnavailable(next.Relay.NotifyUnavailable)
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ApplyLogLevel(cfg.LogLevel)
	o.SetNotifyUnavailable(cfg.Relay.NotifyUnavailable)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Str("path", db.Path()).Msg("database ready")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.SetupRouter(ctx, cfg, o, db),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Chat server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
