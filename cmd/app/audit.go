package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Domenick1991/garagebooking/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newAuditCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <reference>",
		Short: "Show a booking and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx := contextOrBackground(cmd)

			app, err := bootstrap.NewApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			b, err := app.Ledger.GetByReference(ctx, args[0])
			if err != nil {
				return err
			}
			entries, err := app.Audit.History(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("read audit trail: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s on %s at %s  %s  payment=%s booking=%s\n\n",
				b.Reference, b.ServiceType, b.Date, b.Time, b.Price.Format(b.Currency), b.PaymentStatus, b.BookingStatus)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTION\tACTOR\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.Actor, e.Details)
			}
			return w.Flush()
		},
	}
}
