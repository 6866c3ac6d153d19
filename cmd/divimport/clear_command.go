package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"divimport/internal/importer"
	"divimport/internal/logging"
	"divimport/internal/recovery"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Abandon the persisted recovery session",
		Long: "Deletes the persisted session so the next run starts fresh. " +
			"The Divi daemon is left running.",
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
				fmt.Fprintln(out, "No recovery session to clear.")
				return nil
			}
			if !force {
				in := bufio.NewReader(cmd.InOrStdin())
				if !confirm(in, out, fmt.Sprintf("Discard the %s session", session.Status)) {
					return errUserAborted
				}
			}

			svc, err := importer.New(cfg, logging.NewNop())
			if err != nil {
				if errors.Is(err, importer.ErrAlreadyRunning) {
					return fmt.Errorf("an importer is running; clear the session from its wizard instead")
				}
				return err
			}
			defer svc.Close()

			if err := svc.Orchestrator().Clear(context.Background(), svc.Token().Value()); err != nil {
				return err
			}
			fmt.Fprintln(out, "Recovery session cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Clear without confirmation")
	return cmd
}
