package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/sessionkit/internal/bootstrap"
	"github.com/target/sessionkit/internal/events"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting sessionkit",
		slog.String("identity_base_url", cfg.Identity.BaseURL),
		slog.String("storage_backend", string(cfg.Storage.Backend)),
		slog.Bool("dev", cfg.IsDev))

	store, storeCloser, err := bootstrap.NewKeyValueStore(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		defer storeCloser()
	}

	metrics, metricsCloser, err := bootstrap.NewMetrics(&cfg, logger)
	if err != nil {
		return err
	}
	if metricsCloser != nil {
		defer metricsCloser()
	}

	stack, err := bootstrap.NewStack(ctx, &bootstrap.StackDeps{
		Config:  &cfg,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	// Surface session-layer notifications in the log so operators can see
	// forced logouts and handshake outcomes.
	ended, cancelEnded := stack.Bus.Subscribe(events.TopicSessionEnded)
	defer cancelEnded()
	googleAuth, cancelGoogle := stack.Bus.Subscribe(events.TopicGoogleAuth)
	defer cancelGoogle()

	stack.Sessions.Bootstrap(ctx)
	state := stack.Sessions.State()
	logger.InfoContext(ctx, "session bootstrapped",
		slog.String("phase", string(state.Phase)),
		slog.String("user_id", state.Identity.ID))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case ev := <-ended:
			logger.InfoContext(runCtx, "session ended", slog.String("reason", ev.Reason))
		case ev := <-googleAuth:
			logger.InfoContext(runCtx, "google auth resolved", slog.String("message", ev.Reason))
		case <-runCtx.Done():
			logger.InfoContext(ctx, "shutting down")
			stack.Sessions.Wait()
			return nil
		}
	}
}
