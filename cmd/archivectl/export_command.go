package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/noah-isme/community-archive/internal/client"
	"github.com/noah-isme/community-archive/internal/dto"
	"github.com/noah-isme/community-archive/internal/models"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build catalog exports on the server",
	}
	cmd.AddCommand(newExportCreateCommand(ctx))
	cmd.AddCommand(newExportStatusCommand(ctx))
	cmd.AddCommand(newExportDownloadCommand(ctx))
	return cmd
}

func newExportCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		format   string
		section  string
		wait     bool
		output   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a CSV or PDF catalog export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := ctx.exportClient()
			if err != nil {
				return err
			}
			job, err := exports.Create(cmd.Context(), models.ExportFormat(strings.ToLower(format)), section)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued export %s\n", job.ID)
			if !wait && output == "" {
				return nil
			}

			status, err := pollExport(cmd.Context(), exports, job.ID, interval)
			if err != nil {
				return err
			}
			printExportStatus(cmd.OutOrStdout(), status)
			if output == "" {
				return nil
			}
			return downloadExport(cmd.Context(), cmd.OutOrStdout(), exports, status, output)
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", string(models.ExportFormatCSV), "Export format (csv or pdf)")
	f.StringVar(&section, "section", "", "Limit the export to one section")
	f.BoolVar(&wait, "wait", false, "Wait for the export to finish")
	f.StringVarP(&output, "output", "o", "", "Download the finished export to this file (implies --wait)")
	f.DurationVar(&interval, "poll", 2*time.Second, "Polling interval while waiting")
	return cmd
}

func newExportStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the state of an export job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := ctx.exportClient()
			if err != nil {
				return err
			}
			status, err := exports.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printExportStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newExportDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a finished export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := ctx.exportClient()
			if err != nil {
				return err
			}
			status, err := exports.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + "." + string(status.Format)
			}
			return downloadExport(cmd.Context(), cmd.OutOrStdout(), exports, status, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to <id>.<format>)")
	return cmd
}

func (c *commandContext) exportClient() (*client.ExportClient, error) {
	cc, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	return client.NewExportClient(cc), nil
}

func pollExport(ctx context.Context, exports *client.ExportClient, id string, interval time.Duration) (dto.ExportStatusResponse, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := exports.Status(ctx, id)
		if err != nil {
			return status, err
		}
		switch status.Status {
		case models.ExportStatusFinished:
			return status, nil
		case models.ExportStatusFailed:
			msg := "export failed"
			if status.Error != nil {
				msg += ": " + *status.Error
			}
			return status, errors.New(msg)
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func downloadExport(ctx context.Context, out io.Writer, exports *client.ExportClient, status dto.ExportStatusResponse, path string) error {
	if status.Status != models.ExportStatusFinished || status.ResultURL == nil {
		return fmt.Errorf("export %s is %s, not ready for download", status.ID, strings.ToLower(string(status.Status)))
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := exports.Download(ctx, *status.ResultURL, fh)
	if closeErr := fh.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(out, "saved %s (%s)\n", path, humanize.IBytes(uint64(n)))
	return nil
}

func printExportStatus(out io.Writer, status dto.ExportStatusResponse) {
	section := "all"
	if status.Section != nil && *status.Section != "" {
		section = *status.Section
	}
	rows := [][]string{
		{"ID", status.ID},
		{"Format", string(status.Format)},
		{"Section", section},
		{"Status", string(status.Status)},
		{"Progress", strconv.Itoa(status.Progress) + "%"},
	}
	if status.Error != nil && *status.Error != "" {
		rows = append(rows, []string{"Error", *status.Error})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
