package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/methodwatch/internal/config"
	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/injector"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `help:"Override server.listen_addr"`
}

func (c *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Listen != "" {
		cfg.Server.ListenAddr = c.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return Serve(ctx, cfg)
}

// Serve runs the wired application until ctx is done or a listener fails.
func Serve(ctx context.Context, cfg config.Config) error {
	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() { _ = app.Logger.Sync() }()

	if err := app.Server.Start(ctx); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Server.Wait()
	}()

	app.Logger.Info("Server started, waiting for shutdown signal")

	select {
	case err := <-errChan:
		if err != nil {
			_ = app.Server.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		app.Logger.Info("Shutdown signal received, stopping server")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := app.Server.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	app.Logger.Info("Server stopped", log.Int("keys", app.Registry.Len()))
	return nil
}
