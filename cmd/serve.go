package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the approval API and metrics over HTTP",
	Long: `Serve exposes the HTTP control surface:

  GET  /health                  liveness probe
  GET  /sessions                list session IDs
  GET  /sessions/:id            inspect one session
  POST /sessions/:id/approve    grant single-use approval
  POST /sessions/:id/reject     reject the pending step
  GET  /metrics                 Prometheus metrics`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Setup(ctx); err != nil {
			return err
		}

		srv := httpapi.New(httpapi.Config{
			Host: a.Config.HTTP.Host,
			Port: a.Config.HTTP.Port,
		}, a.Store, a.Metrics, a.Logger.Named("http"))

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("shutdown incomplete", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
