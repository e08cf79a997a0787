package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/session"
)

func newNotesCmd(opts *rootOptions) *cobra.Command {
	notes := &cobra.Command{
		Use:   "notes",
		Short: "List saved notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				list, err := a.ctrl.Notes(ctx)
				if err != nil {
					return err
				}
				printNotes(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}

	notes.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return reportDeclined(cmd, a.ctrl.DeleteNote(ctx, args[0]))
			})
		},
	})

	notes.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return reportDeclined(cmd, a.ctrl.ClearNotes(ctx))
			})
		},
	})

	return notes
}

// withApp runs fn against a session that lives for one command.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts, model.CounterpartMeetingRoom, promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), opts.yes))
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}

func promptConfirmer(in io.Reader, out io.Writer, autoYes bool) session.Confirmer {
	reader := bufio.NewReader(in)
	return session.ConfirmFunc(func(_ context.Context, question string) bool {
		if autoYes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N]: ", question)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func reportDeclined(cmd *cobra.Command, err error) error {
	if errors.Is(err, session.ErrDeclined) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	return err
}
