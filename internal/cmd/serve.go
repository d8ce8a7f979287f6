package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/config"
	"github.com/harrison/bshape/internal/logger"
	"github.com/harrison/bshape/internal/server"
	"github.com/harrison/bshape/internal/submission"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the 'bshape serve' command.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the submission persistence endpoint",
		Long: `Serve POST ` + submission.SubmitPath + ` and store each completed assessment
in the SQLite submission store. The server also exposes /health and
Prometheus metrics on /metrics. It stops on interrupt.

Examples:
  bshape serve
  bshape serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.MergeWithFlags(nil, nil, nil, &port)
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	store, err := submission.NewStore(cfg.Submission.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open submission store: %w", err)
	}
	defer store.Close()

	fileLog, err := logger.NewFileLogger(cfg.LogDir, "serve", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer fileLog.Close()
	log := logger.Tee{logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel), fileLog}

	srv, err := server.NewServer(store, log, &server.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	log.LogInfo(fmt.Sprintf("submission store %s, log file %s", store.Path(), fileLog.Path()))

	ctx := cmd.Context()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
