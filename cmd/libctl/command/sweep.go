package command

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryhub/internal/app"
)

// sweepCmd groups the batch jobs the scheduler normally runs.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a circulation sweep now",
}

var sweepTimeout time.Duration

var sweepOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Mark late loans overdue and fine them",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, lg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), sweepTimeout)
		defer cancel()

		report, err := a.Services.Loans.ProcessOverdue(ctx)
		if err != nil {
			return fmt.Errorf("overdue sweep failed: %w", err)
		}
		fmt.Printf("candidates: %d\nmarked overdue: %d\nskipped: %d\ntotal fined: %s\n",
			report.Candidates, report.MarkedOverdue, report.Skipped, report.TotalFined.StringFixed(2))
		if report.Failed > 0 {
			color.Yellow("⚠ %d loans failed, see the log", report.Failed)
		}
		return nil
	},
}

var sweepReservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "Send pickup notices for reservations that are ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, lg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), sweepTimeout)
		defer cancel()

		sent, err := a.Services.Reservations.NotifyReady(ctx)
		if err != nil {
			return fmt.Errorf("reservation sweep failed: %w", err)
		}
		fmt.Printf("notices sent: %d\n", sent)
		return nil
	},
}

func init() {
	sweepCmd.PersistentFlags().DurationVar(&sweepTimeout, "timeout", 5*time.Minute, "give up after this long")
	sweepCmd.AddCommand(sweepOverdueCmd)
	sweepCmd.AddCommand(sweepReservationsCmd)
}
