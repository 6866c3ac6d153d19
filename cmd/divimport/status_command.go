package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"divimport/internal/recovery"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var historyLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted recovery session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			store := recovery.NewStore(cfg.SessionFilePath())
			session, err := store.Load()
			if err != nil {
				return err
			}
			if session == nil {
				fmt.Fprintln(out, "No recovery session.")
			} else {
				rows := [][2]string{
					{"Status", string(session.Status)},
					{"Session", session.ID},
					{"Step started", session.StepStartedAt.Local().Format(time.RFC1123)},
					{"Last updated", session.LastUpdatedAt.Local().Format(time.RFC1123)},
					{"Import completed", strconv.FormatBool(session.ImportCompleted)},
				}
				if session.Status == recovery.StatusSyncing || session.SyncProgress > 0 {
					rows = append(rows,
						[2]string{"Sync progress", fmt.Sprintf("%.2f%%", session.SyncProgress*100)},
						[2]string{"Blocks", strconv.FormatInt(session.Blocks, 10)},
					)
				}
				if session.DaemonEndpoint != "" {
					rows = append(rows, [2]string{"Daemon", session.DaemonEndpoint})
				}
				if session.PreExistingDaemon {
					rows = append(rows, [2]string{"Daemon origin", "pre-existing"})
				}
				if session.ErrorDetail != "" {
					rows = append(rows, [2]string{"Error", session.ErrorDetail})
				}
				fmt.Fprintln(out, renderSessionTable(rows))
			}

			if historyLimit > 0 {
				return printHistory(cmd, cfg.JournalPath(), historyLimit)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&historyLimit, "history", 0, "Show the last N status transitions")
	return cmd
}

func printHistory(cmd *cobra.Command, journalPath string, limit int) error {
	journal, err := recovery.OpenJournal(journalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	transitions, err := journal.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded transitions.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(transitions))
	return nil
}
