package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"snapship/internal/journal"
)

const historyDetailWidth = 48

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent upload attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			var records []*journal.Record
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status := journal.Status(strings.ToLower(trimmed))
				if !journal.ValidStatus(status) {
					return fmt.Errorf("unknown status %q (expected archived, failed, or vanished)", trimmed)
				}
				records, err = store.List(cmd.Context(), status)
				if err == nil {
					records = newestFirst(records, limit)
				}
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			stdout := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(stdout, "No uploads recorded")
				return nil
			}

			fmt.Fprintln(stdout, renderTable(
				[]string{"ID", "File", "Size", "Status", "When", "Detail"},
				historyRows(records),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (archived, failed, vanished)")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded upload attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := journal.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear journal: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d records\n", removed)
			return nil
		},
	}
}

// newestFirst reverses the ascending store order and caps the result.
func newestFirst(records []*journal.Record, limit int) []*journal.Record {
	reversed := make([]*journal.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}
	if limit > 0 && len(reversed) > limit {
		reversed = reversed[:limit]
	}
	return reversed
}

func historyRows(records []*journal.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		size := "-"
		if record.SizeBytes > 0 {
			size = humanize.Bytes(uint64(record.SizeBytes))
		}
		when := ""
		if !record.CompletedAt.IsZero() {
			when = humanize.Time(record.CompletedAt)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", record.ID),
			record.FileName,
			size,
			formatStatusLabel(string(record.Status)),
			when,
			historyDetail(record),
		})
	}
	return rows
}

func historyDetail(record *journal.Record) string {
	var detail string
	switch record.Status {
	case journal.StatusArchived:
		if name := filepath.Base(record.ArchivePath); name != "." && name != record.FileName {
			detail = "archived as " + name
		}
	default:
		detail = record.ErrorMessage
	}
	detail = strings.TrimSpace(detail)
	if len(detail) > historyDetailWidth {
		detail = detail[:historyDetailWidth-1] + "…"
	}
	return detail
}
