// Package cli defines the jobdag command, binding flags exactly to
// spec.md §6's external interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jobdag/jobdag/internal/runner"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the jobdag cobra command.
func NewRootCommand() *cobra.Command {
	var (
		path           string
		logPath        string
		configFile     string
		delaySeconds   int
		disabled       []string
		mailOverride   string
		extras         string
		extrasFile     string
		runningDelay   int
		simulate       bool
		verbose        bool
		noSuccessEmail bool
	)

	cmd := &cobra.Command{
		Use:   "jobdag",
		Short: "Runs a DAG of steps described by a job config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runningDelay < 60 {
				return fmt.Errorf("--running_delay must be at least 60 seconds, got %d", runningDelay)
			}
			if configFile == "" {
				return fmt.Errorf("--config is required")
			}

			opts := runner.Options{
				Path:           path,
				LogPath:        logPath,
				ConfigFile:     configFile,
				Delay:          time.Duration(delaySeconds) * time.Second,
				Disabled:       disabled,
				MailToOverride: mailOverride,
				Extras:         extras,
				ExtrasFile:     extrasFile,
				RunningDelay:   time.Duration(runningDelay) * time.Second,
				Simulate:       simulate,
				Verbose:        verbose,
				NoSuccessEmail: noSuccessEmail,
			}

			ctx := cmd.Context()
			r := runner.New(opts)
			outcome, err := r.Run(ctx)
			if err != nil {
				return err
			}
			if outcome.String() != "SUCCESS" {
				os.Exit(1)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&path, "path", "p", "./", "config directory")
	flags.StringVarP(&logPath, "log_path", "l", "", "log directory (default <path>/logs)")
	flags.StringVarP(&configFile, "config", "c", "", "config file name (required)")
	flags.IntVarP(&delaySeconds, "delay", "d", 1, "tick interval seconds")
	flags.StringSliceVarP(&disabled, "disabled", "D", nil, "comma-separated step keys to force-disable")
	flags.StringVarP(&mailOverride, "email", "e", "", "override failure email recipient")
	flags.StringVarP(&extras, "Extras", "E", "", "JSON snippet; highest precedence variables")
	flags.StringVar(&extrasFile, "extras_file", "", "path to JSON file of variables")
	flags.IntVarP(&runningDelay, "running_delay", "r", 900, "running-summary interval seconds (min 60)")
	flags.BoolVarP(&simulate, "simulate", "s", false, "job-wide simulate")
	flags.BoolVarP(&verbose, "verbose", "v", true, "verbose logging")
	flags.BoolVar(&noSuccessEmail, "no_success_email", false, "suppress success notice")

	return cmd
}
