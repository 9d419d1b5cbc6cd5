package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/spf13/cobra"
)

func newLeaseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Take, renew or give back a plan's edit lease",
		Long: "Editing a plan's items or detail lines needs the plan's edit lease. " +
			"A lease expires on its own after the configured time-to-live unless renewed.",
	}
	cmd.AddCommand(
		newLeaseActionCmd(app, "acquire", "Take the edit lease on a plan"),
		newLeaseActionCmd(app, "renew", "Extend your edit lease"),
		newLeaseReleaseCmd(app),
		newLeaseShowCmd(app),
	)
	return cmd
}

func newLeaseActionCmd(app *App, use, short string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   use + " <plan-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			var l *domain.PlanEditLease
			if use == "renew" {
				l, err = app.Leases.Renew(cmd.Context(), args[0], who)
			} else {
				l, err = app.Leases.Acquire(cmd.Context(), args[0], who, ttl)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lease on %s held by %s until %s\n",
				l.PlanID, formatter.Bold(l.HolderID), l.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	if use == "acquire" {
		cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lease time-to-live (default: the configured TTL)")
	}
	return cmd
}

func newLeaseReleaseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "release <plan-id>",
		Short: "Give back your edit lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			if err := app.Leases.Release(cmd.Context(), args[0], who); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released lease on %s\n", args[0])
			return nil
		},
	}
}

func newLeaseShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show who holds a plan's edit lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.Leases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.KeyValues([][2]string{
				{"Plan", l.PlanID},
				{"Holder", l.HolderID},
				{"Acquired", l.AcquiredAt.Format(time.RFC3339)},
				{"Expires", l.ExpiresAt.Format(time.RFC3339)},
			}))
			return nil
		},
	}
}
