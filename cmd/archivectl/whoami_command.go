package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the anonymous reporter token for this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			if reset {
				if err := store.Reset(); err != nil {
					return err
				}
			}
			token, err := store.Token()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "stored in %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Discard the stored token and mint a new one")
	return cmd
}
