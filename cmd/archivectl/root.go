package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(opts ...func(*commandContext)) *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)
	for _, opt := range opts {
		opt(ctx)
	}

	rootCmd := &cobra.Command{
		Use:           "archivectl",
		Short:         "Browse, submit and report community archive materials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "Archive server URL (overrides ARCHIVE_SERVER_URL)")
	pf.StringVar(&flags.apiPrefix, "api-prefix", "", "API prefix (overrides ARCHIVE_API_PREFIX)")
	pf.StringVar(&flags.tokenFile, "token-file", "", "Reporter token file (overrides ARCHIVE_TOKEN_FILE)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "HTTP timeout for metadata requests")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level written to stderr")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newCategoryCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newFlagCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newTaxonomyCommand(ctx))
	rootCmd.AddCommand(newWhoamiCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "taxonomy", "completion":
		return true
	}
	return false
}
