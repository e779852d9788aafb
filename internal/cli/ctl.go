package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"catat/internal/backend"
	"catat/internal/config"
	"catat/internal/core"
	"catat/internal/ledger"
)

// OpenFunc opens the configured backend for a single command invocation.
type OpenFunc func(ctx context.Context) (*backend.BackendResult, error)

// ─── catatctl ───────────────────────────────────────────────────────────────
// Operator commands against the same store the bot writes to. They never
// publish events and never talk to WhatsApp.

// NewRootCmd builds the catatctl command tree.
func NewRootCmd(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "catatctl",
		Short:         "Inspect the catat ledger and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newReportCmd(open))

	reminders := &cobra.Command{
		Use:   "reminders",
		Short: "Manage scheduled reminders (sqlite backend only)",
	}
	reminders.AddCommand(newRemindersListCmd(open), newRemindersCancelCmd(open))
	root.AddCommand(reminders)

	return root
}

// ─── report ─────────────────────────────────────────────────────────────────

type reportJSON struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

func newReportCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ledger totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			res, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Close()

			totals, err := ledger.NewBook(res.Ledger).Totals(cmd.Context())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), totals, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print totals as JSON")
	return cmd
}

func writeReport(w io.Writer, t core.Totals, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportJSON{Income: t.Income, Expense: t.Expense, Balance: t.Balance})
	}
	_, err := fmt.Fprintf(w, "Pemasukan: %d\nPengeluaran: %d\nSaldo: %d\n", t.Income, t.Expense, t.Balance)
	return err
}

// ─── reminders ──────────────────────────────────────────────────────────────

var errNoReminderStore = errors.New("reminders are only persisted with DATA_BACKEND=sqlite")

func openReminders(ctx context.Context, open OpenFunc) (*backend.BackendResult, error) {
	res, err := open(ctx)
	if err != nil {
		return nil, err
	}
	if res.Reminders == nil {
		res.Close()
		return nil, errNoReminderStore
	}
	return res, nil
}

func newRemindersListCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending reminders ordered by fire time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := openReminders(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer res.Close()

			pending, err := res.Reminders.PendingReminders(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending reminders.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFIRE AT\tSENDER\tMESSAGE")
			for _, r := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.FireAt.Format(time.DateTime), r.Sender, r.Message)
			}
			return tw.Flush()
		},
	}
}

func newRemindersCancelCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel REMINDER_ID",
		Short: "Cancel a pending reminder",
		Long: `Cancel a pending reminder in the store. A running bot notices the
cancellation when the timer fires and skips delivery.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			res, err := openReminders(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer res.Close()

			moved, err := res.Reminders.TransitionReminder(cmd.Context(), id, core.ReminderPending, core.ReminderCancelled)
			if err != nil {
				return err
			}
			if !moved {
				return fmt.Errorf("%w: no pending reminder %q", core.ErrReminderNotFound, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder %s cancelled.\n", id)
			return nil
		},
	}
}

// BackendOpener opens cfg's backend without an event publisher.
func BackendOpener(cfg *config.Config, factory backend.Factory) OpenFunc {
	return func(ctx context.Context) (*backend.BackendResult, error) {
		return factory.CreateBackend(ctx, cfg)
	}
}
