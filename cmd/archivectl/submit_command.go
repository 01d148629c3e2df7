package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/noah-isme/community-archive/internal/archive"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

const maxCaptchaAttempts = 3

type submitOptions struct {
	form        archive.Form
	contentType string
	answer      string
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a file and archive it as a new material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.form.Title, "title", "", "Material title")
	f.StringVar(&opts.form.Author, "author", "", "Author or creator")
	f.StringVar(&opts.form.Description, "description", "", "Short description")
	f.StringVar(&opts.form.Section, "section", "", "Section (see `archivectl taxonomy`)")
	f.StringVar(&opts.form.Subsection, "subsection", "", "Subsection within the section")
	f.StringVar(&opts.form.OtherSubsection, "other", "", "Custom subsection when --subsection is Other")
	f.StringVar(&opts.contentType, "type", "", "Declared MIME type (detected when empty)")
	f.StringVar(&opts.answer, "answer", "", "Answer to the arithmetic challenge (prompted when empty)")
	return cmd
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, opts *submitOptions, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close() //nolint:errcheck

	info, err := fh.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	contentType := strings.TrimSpace(opts.contentType)
	if contentType == "" {
		if contentType, err = detectContentType(path); err != nil {
			return err
		}
	}
	file := &archive.File{
		Name:    filepath.Base(path),
		Type:    contentType,
		Size:    info.Size(),
		Content: fh,
	}
	form := opts.form
	form.Section = strings.ToLower(strings.TrimSpace(form.Section))

	s, err := ctx.newSession(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, %s)\n", file.Name, file.Type, humanize.IBytes(uint64(file.Size)))

	input := bufio.NewReader(cmd.InOrStdin())
	challenge := s.controller.OpenSubmission()
	for attempt := 1; ; attempt++ {
		answer := opts.answer
		if answer == "" {
			if answer, err = prompt(out, input, challenge.Question()+" "); err != nil {
				return err
			}
		}

		sub, err := s.controller.Submit(cmd.Context(), form, file, answer)
		if err != nil {
			retry := opts.answer == "" && attempt < maxCaptchaAttempts &&
				errors.Is(err, appErrors.ErrCaptchaMismatch)
			if retry {
				challenge = s.sink.currentChallenge()
				continue
			}
			return shown(err)
		}

		material, err := sub.Wait(cmd.Context())
		if err != nil {
			return shown(err)
		}
		fmt.Fprintf(out, "id: %s\n", material.ID)
		return nil
	}
}

func prompt(out io.Writer, in *bufio.Reader, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	case errors.Is(err, io.EOF):
		return "", errors.New("no answer given")
	default:
		return "", err
	}
	return strings.TrimSpace(line), nil
}
