package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sweeper/internal/config"
	"sweeper/internal/history"
)

func newHistoryCommand(configFlag *string) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the processing journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, *configFlag, "", 50)
		},
	}

	var statusFilter string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List processed downloads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, *configFlag, history.Status(statusFilter), limit)
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, completed, deferred, skipped, failed)")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journal counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(*configFlag)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats))
			for _, status := range []history.Status{
				history.StatusPending, history.StatusCompleted, history.StatusDeferred,
				history.StatusSkipped, history.StatusFailed,
			} {
				if count, ok := stats[status]; ok {
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and skipped entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(*configFlag)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", removed)
			return nil
		},
	}

	historyCmd.AddCommand(listCmd)
	historyCmd.AddCommand(statsCmd)
	historyCmd.AddCommand(clearCmd)
	return historyCmd
}

func runHistoryList(cmd *cobra.Command, configPath string, status history.Status, limit int) error {
	store, err := openHistoryStore(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(cmd.Context(), status, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		detail := record.FinalPath
		if record.ErrorMessage != "" {
			detail = record.ErrorMessage
		}
		rows = append(rows, []string{
			strconv.FormatInt(record.ID, 10),
			record.Title,
			record.Category,
			string(record.Status),
			record.UpdatedAt.Local().Format(time.DateTime),
			detail,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Title", "Category", "Status", "Updated", "Detail"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
	return nil
}

func openHistoryStore(configPath string) (*history.Store, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}
