package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	language string
	backend  string
	expert   bool
	verbose  bool
	yes      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "boardroom",
		Short:         "Chat with the factory's senior managers",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, "")
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.language, "lang", "", "reply language: bn or en (default from BOARDROOM_LANGUAGE)")
	flags.StringVar(&opts.backend, "storage", "", "storage backend: memory, file, redis or postgres")
	flags.BoolVar(&opts.expert, "expert", false, "ask managers for advanced technical detail")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "write logs to stderr")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "skip confirmation prompts")

	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newNotesCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newManagersCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
