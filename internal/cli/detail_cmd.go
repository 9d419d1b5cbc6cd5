package cli

import (
	"fmt"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/spf13/cobra"
)

func newDetailCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detail",
		Short: "Assign materials, workers, vehicles and teams to plan items",
	}
	cmd.AddCommand(newDetailAddCmd(app), newDetailRemoveCmd(app), newDetailListCmd(app))
	return cmd
}

func newDetailAddCmd(app *App) *cobra.Command {
	var in service.DetailInput

	cmd := &cobra.Command{
		Use:   "add <work-code> <kind:id>",
		Short: "Add a detail line to an item (needs the edit lease)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			in.Resource, err = parseResourceRef(args[1])
			if err != nil {
				return err
			}
			line, err := app.Ledger.AddDetail(cmd.Context(), who, args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s × %s to %s (line %s, total %s)\n",
				formatter.Qty(line.Quantity), line.Resource, line.WorkCode, line.ID, formatter.Money(line.Total))
			return nil
		},
	}

	cmd.Flags().Var(newDecimalValue(&in.Quantity), "qty", "Quantity")
	cmd.Flags().Var(newDecimalValue(&in.UnitPrice), "price", "Unit price")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newDetailRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a detail line (needs the edit lease)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			if err := app.Ledger.RemoveDetail(cmd.Context(), who, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed line %s\n", args[0])
			return nil
		},
	}
}

func newDetailListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <work-code>",
		Short: "List an item's detail lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := app.Ledger.ListDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), detailTable(lines))
			return nil
		},
	}
}
