package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/config"
)

// Version is the current version of bshape.
// This can be overridden at build time with -ldflags "-X github.com/harrison/bshape/internal/cmd.Version=x.y.z"
var Version = "dev"

// NewRootCommand creates and returns the root command for bshape CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bshape",
		Short: "Relationship safety risk assessment",
		Long: `BSHAPE (Being Safe, Healthy and Positively Empowered) walks a respondent through
a questionnaire about the relationships they are concerned about, scores each
relationship section, and shows tailored guidance for the resulting risk level.

Progress is saved after every answer, so an assessment can be resumed later.
Completed assessments are submitted to a local SQLite store or to a
persistence endpoint run with 'bshape serve'.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("home", "", "bshape home directory (default $BSHAPE_HOME or ./.bshape)")
	cmd.PersistentFlags().String("config", "", "path to config file (default <home>/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewStartCommand())
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewScoreCommand())
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewSubmissionsCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewDraftCommand())

	return cmd
}

// loadConfig resolves the home directory and loads the configuration the
// persistent flags point at. Flags override file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		var err error
		if home, err = config.GetHome(); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	var cfg *config.Config
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfig(path)
		if err == nil {
			cfg.ResolvePaths(home)
		}
	} else {
		cfg, err = config.LoadConfigFromHome(home)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		cfg.MergeWithFlags(&level, nil, nil, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load question catalog: %w", err)
	}
	return cat, nil
}
