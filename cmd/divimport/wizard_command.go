package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"divimport/internal/importer"
)

func newWizardCommand(ctx *commandContext, logLevel *string) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Run the browser-based recovery wizard",
		Long: "Starts the importer, opens the recovery wizard in the default " +
			"browser, and keeps serving until the recovery finishes or the " +
			"process is interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(*logLevel)
			if err != nil {
				return err
			}

			svc, err := importer.New(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Starting the Divi recovery wizard. Press Ctrl+C to stop.")
			return svc.Run(sigCtx, !noBrowser)
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the wizard in a browser")
	return cmd
}
