package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <plan-id> <file>",
		Short: "Import WBS items and detail lines from a JSON or YAML file",
		Long: "Import reads items: [{index, parent_index, work_code, name, unit, quantity, " +
			"unit_price, start_date, end_date, relations, details: [{kind, resource_id, quantity, unit_price}]}]. " +
			"Every row is validated first; then all items are created in one transaction under your edit lease.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			res, err := app.Import.ImportItems(cmd.Context(), who, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d item(s) and %d detail line(s) into plan %s\n",
				res.ItemCount, res.DetailCount, res.PlanID)
			return nil
		},
	}
}
