package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/assessment"
	"github.com/harrison/bshape/internal/config"
	"github.com/harrison/bshape/internal/draft"
	"github.com/harrison/bshape/internal/logger"
	"github.com/harrison/bshape/internal/render"
	"github.com/harrison/bshape/internal/submission"
)

// NewStartCommand creates the 'bshape start' command.
func NewStartCommand() *cobra.Command {
	var fresh bool
	var mode string
	var endpoint string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start or resume an assessment",
		Long: `Start the interactive assessment. A saved draft is resumed at the step where
it was left unless --fresh is given.

Examples:
  # Resume or start an assessment
  bshape start

  # Discard any saved progress and begin again
  bshape start --fresh

  # Send the completed assessment to a running 'bshape serve'
  bshape start --mode http --endpoint http://127.0.0.1:8080/api/submit-assessment`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			var modeFlag, endpointFlag *string
			if cmd.Flags().Changed("mode") {
				modeFlag = &mode
			}
			if cmd.Flags().Changed("endpoint") {
				endpointFlag = &endpoint
			}
			cfg.MergeWithFlags(nil, modeFlag, endpointFlag, nil)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runStart(cmd, cfg, fresh)
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Discard the saved draft and start over")
	cmd.Flags().StringVar(&mode, "mode", "", "Submission mode: local or http")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Persistence endpoint URL for http mode")

	return cmd
}

func runStart(cmd *cobra.Command, cfg *config.Config, fresh bool) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	submitter, closer, err := openSubmitter(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctrl, err := assessment.New(cat, assessment.Config{
		Drafts:    draft.NewFileStore(cfg.DraftPath),
		Submitter: submitter,
		Logger:    logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	})
	if err != nil {
		return err
	}

	term := render.NewTerminal(cmd.OutOrStdout(), cat)
	if fresh {
		if err := ctrl.Reset(); err != nil {
			return err
		}
	} else {
		restored, err := ctrl.Resume()
		if errors.Is(err, assessment.ErrPlanDrift) {
			return fmt.Errorf("%w (run 'bshape start --fresh' to begin again)", err)
		}
		if err != nil {
			return err
		}
		if restored {
			term.Message(fmt.Sprintf("Resuming your saved assessment at step %d.", ctrl.Session().CurrentStep+1))
		}
	}

	return render.Run(cmd.Context(), ctrl, cmd.InOrStdin(), term)
}

// openSubmitter returns the submitter for the configured mode and whatever must be closed after use.
func openSubmitter(cfg *config.Config) (assessment.Submitter, io.Closer, error) {
	if cfg.Submission.Mode == config.ModeHTTP {
		return submission.NewClient(cfg.Submission.Endpoint, cfg.Submission.Timeout), io.NopCloser(nil), nil
	}

	store, err := submission.NewStore(cfg.Submission.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open submission store: %w", err)
	}
	return store, store, nil
}
