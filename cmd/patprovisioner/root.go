package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/tableau-pat-provisioner/internal/config"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	outputFile string
	logFile    string
	debug      bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "patprovisioner",
		Short: "Create Tableau personal access tokens for a list of users",
		Long: `patprovisioner signs in to Tableau Server or Tableau Cloud as a site administrator,
resolves every username listed in the configuration file and then, impersonating each user
in turn, creates one personal access token per user. Tokens are appended to the output file
as one JSON object per line.

Without flags the configuration is read from configs.yml (or $PAT_CONFIG), tokens are
written to pat_tokens.txt and the log goes to logs.txt.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.GetConfigPath(), "configuration file")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "token output file (default from options.output_file or "+config.DefaultOutputFile+")")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "log file (default from options.log_file or "+config.DefaultLogFile+")")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "force debug level logging")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no banner, progress bar or summary table")
	return cmd
}
