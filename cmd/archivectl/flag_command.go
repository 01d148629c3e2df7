package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/community-archive/internal/archive"
)

func newFlagCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "flag <id>",
		Short: "Report a material as inappropriate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("reason") {
				fmt.Fprint(cmd.OutOrStdout(), "Why are you reporting this content? ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return nil
				}
				reason = line
			}

			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			s.load(cmd.Context())

			outcome, err := s.controller.Flag(cmd.Context(), args[0], reason)
			if err != nil {
				return shown(err)
			}
			if outcome == archive.FlagIgnored {
				fmt.Fprintln(cmd.ErrOrStderr(), "No reason given; nothing reported.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason for the report")
	return cmd
}
