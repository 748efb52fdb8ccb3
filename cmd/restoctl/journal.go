package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type journalListArgs struct {
	server string
	limit  int
}

func newJournalCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local interaction journal",
	}
	cmd.AddCommand(newJournalListCmd(opts))
	return cmd
}

func newJournalListCmd(opts *cliOptions) *cobra.Command {
	listArgs := &journalListArgs{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded server interactions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			j, err := openJournal(opts)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			entries, err := j.List(listArgs.server, listArgs.limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No journal entries.")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.At.Format(time.RFC3339),
					entry.Server,
					string(entry.Kind),
					entry.Subject,
				})
			}
			return renderTable([]string{"At", "Server", "Kind", "Subject"}, rows)
		},
	}
	cmd.Flags().StringVar(&listArgs.server, "server", "", "only entries for this server")
	cmd.Flags().IntVar(&listArgs.limit, "limit", 0, "keep only the N most recent entries")
	return cmd
}
