package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"knittex.app/boardroom/internal/model"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history [manager]",
		Short: "Print stored conversations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only model.Counterpart
			if len(args) == 1 {
				c, err := model.ParseCounterpart(args[0])
				if err != nil {
					return err
				}
				only = c
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snapshot, err := a.ctrl.Snapshot(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printed := 0
				for _, c := range model.Counterparts() {
					if only != "" && c != only {
						continue
					}
					if only == "" && len(snapshot[c]) == 0 {
						continue
					}
					printTranscript(out, c, snapshot[c], a.language)
					printed++
				}
				if printed == 0 {
					fmt.Fprintln(out, "No conversations yet.")
				}
				return nil
			})
		},
	}
}

func newManagersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "managers",
		Short: "List the managers you can talk to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printManagers(cmd.OutOrStdout())
		},
	}
}

func printManagers(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tEXPERIENCE")
	for _, c := range model.Counterparts() {
		m, _ := model.LookupManager(c)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c, m.Name, m.Role, m.Experience)
	}
	return w.Flush()
}
