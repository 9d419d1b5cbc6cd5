package cli

import (
	"fmt"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newInventoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Stock balances per project and in the shared pool",
	}
	cmd.AddCommand(
		newInventoryReceiveCmd(app),
		newInventoryBalanceCmd(app),
		newInventoryListCmd(app),
		newInventorySetActiveCmd(app, "activate", true),
		newInventorySetActiveCmd(app, "deactivate", false),
	)
	return cmd
}

// inventoryKey reads the <kind:id> argument and the --project flag; an
// unset project means the pool.
func inventoryKey(cmd *cobra.Command, app *App, arg, project string) (domain.InventoryKey, error) {
	ref, err := parseResourceRef(arg)
	if err != nil {
		return domain.InventoryKey{}, err
	}
	key := domain.InventoryKey{Resource: ref, ProjectID: domain.PoolScope}
	if project != "" {
		if key.ProjectID, err = resolveProjectID(cmd.Context(), app, project); err != nil {
			return domain.InventoryKey{}, err
		}
	}
	return key, nil
}

func newInventoryReceiveCmd(app *App) *cobra.Command {
	var project string
	var qty decimal.Decimal

	cmd := &cobra.Command{
		Use:   "receive <kind:id>",
		Short: "Book incoming stock into a project or the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			key, err := inventoryKey(cmd, app, args[0], project)
			if err != nil {
				return err
			}
			row, err := app.Inventory.Receive(cmd.Context(), who, key, qty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s @ %s: %s\n",
				row.Key.Resource, formatter.ScopeLabel(row.Key.ProjectID), formatter.Bold(formatter.Qty(row.Quantity)))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name (default: the pool)")
	cmd.Flags().Var(newDecimalValue(&qty), "qty", "Quantity received")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newInventoryBalanceCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "balance <kind:id>",
		Short: "Show one balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := inventoryKey(cmd, app, args[0], project)
			if err != nil {
				return err
			}
			row, err := app.Inventory.Balance(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), inventoryTable([]*domain.InventoryRow{row}))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name (default: the pool)")
	return cmd
}

func newInventoryListCmd(app *App) *cobra.Command {
	var project string
	var pool, activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.InventoryFilter{ActiveOnly: activeOnly}
			switch {
			case pool:
				scope := domain.PoolScope
				f.ProjectID = &scope
			case project != "":
				id, err := resolveProjectID(cmd.Context(), app, project)
				if err != nil {
					return err
				}
				f.ProjectID = &id
			}
			rows, err := app.Inventory.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), inventoryTable(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only this project")
	cmd.Flags().BoolVar(&pool, "pool", false, "Only the shared pool")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Hide deactivated rows")
	cmd.MarkFlagsMutuallyExclusive("project", "pool")
	return cmd
}

func newInventorySetActiveCmd(app *App, use string, active bool) *cobra.Command {
	var project string

	short := "Allow a balance to be drawn from again"
	if !active {
		short = "Stop a balance from being drawn from (it must be empty)"
	}

	cmd := &cobra.Command{
		Use:   use + " <kind:id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := inventoryKey(cmd, app, args[0], project)
			if err != nil {
				return err
			}
			row, err := app.Inventory.SetActive(cmd.Context(), key, active)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), inventoryTable([]*domain.InventoryRow{row}))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name (default: the pool)")
	return cmd
}

func inventoryTable(rows []*domain.InventoryRow) string {
	if len(rows) == 0 {
		return formatter.Dim("No stock recorded.") + "\n"
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		state := formatter.StyleGreen.Render("active")
		if !r.Active {
			state = formatter.Dim("inactive")
		}
		out = append(out, []string{formatter.ScopeLabel(r.Key.ProjectID), string(r.Key.Resource.Kind()),
			r.Key.Resource.ID(), formatter.Qty(r.Quantity), state, fmt.Sprintf("v%d", r.Version)})
	}
	return formatter.Table{
		Headers: []string{"SCOPE", "KIND", "RESOURCE", "QTY", "STATE", "VERSION"},
		Rows:    out,
		Numeric: map[int]bool{3: true},
	}.Render()
}
