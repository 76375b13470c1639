package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"socket/internal/journal"
)

func newNotaryCommand(ctx *commandContext) *cobra.Command {
	notaryCmd := &cobra.Command{
		Use:   "notary",
		Short: "Notarization utilities",
	}
	notaryCmd.AddCommand(newNotaryLogCommand(ctx))
	return notaryCmd
}

func newNotaryLogCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recorded notarization sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open notarization journal: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No notarization sessions recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				requestID := entry.RequestID
				if requestID == "" {
					requestID = "-"
				}
				rows = append(rows, []string{
					requestID,
					entry.BundleID,
					entry.Status,
					fmt.Sprintf("%d", entry.Attempts),
					entry.UpdatedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Request", "Bundle", "Status", "Attempts", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list")
	return cmd
}
