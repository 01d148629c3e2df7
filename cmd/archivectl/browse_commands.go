package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/community-archive/internal/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every archived material, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			s.load(cmd.Context())
			s.sink.showViews()
			s.controller.ShowAll()
			return nil
		},
	}
}

func newCategoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "category <section>",
		Short: "List the materials of one section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := strings.ToLower(strings.TrimSpace(args[0]))
			if !models.IsSection(section) {
				return fmt.Errorf("unknown section %q (one of: %s)", args[0], strings.Join(models.Sections(), ", "))
			}
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			s.load(cmd.Context())
			s.sink.showViews()
			s.controller.SelectCategory(section)
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search titles, authors, descriptions and subsections",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			s.load(cmd.Context())
			s.sink.showViews()
			s.controller.Search(strings.Join(args, " "))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the details of one material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			s.load(cmd.Context())
			_, err = s.controller.ViewDetail(args[0])
			return err
		},
	}
}

func newTaxonomyCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the sections and their subsections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(models.Sections()))
			for _, section := range models.Taxonomy() {
				rows = append(rows, []string{section.Name, strings.Join(section.Subsections, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "Subsections"}, rows, nil))
			return nil
		},
	}
}
