package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staketools/offline-election/pkg/api"
	"github.com/staketools/offline-election/pkg/application"
	"github.com/staketools/offline-election/pkg/engine"
)

var (
	// Server command flags
	serverPort     uint16
	serverRunsDir  string
	serverInMemory bool
)

// NewServerCmd creates the server command
func NewServerCmd(app *application.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		Long:  "Start the REST API server for running elections over HTTP and retrieving stored runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			store, err := openRunStore(app)
			if err != nil {
				return err
			}
			defer store.Close()

			eng := engine.New(engine.WithLogger(app.Log))
			handlers := api.NewHandlers(eng, store, api.NewMetrics(), app.Log)
			server := api.NewServer(fmt.Sprintf(":%d", serverPort), handlers, app.Log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				app.Log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().Uint16Var(&serverPort, "port", 3000, "port to listen on")
	cmd.Flags().StringVar(&serverRunsDir, "runs-dir", "", "directory for the run store (default: <base-dir>/runs)")
	cmd.Flags().BoolVar(&serverInMemory, "in-memory", false, "keep runs in memory instead of on disk")

	return cmd
}

func openRunStore(app *application.App) (*api.RunStore, error) {
	if serverInMemory {
		return api.OpenInMemoryRunStore()
	}
	dir := serverRunsDir
	if dir == "" {
		dir = app.GetRunsDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	app.Log.Info("opening run store", zap.String("dir", dir))
	return api.OpenRunStore(dir)
}
