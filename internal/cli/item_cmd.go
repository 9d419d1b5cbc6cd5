package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newItemCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Edit a plan's work breakdown structure",
	}
	cmd.AddCommand(
		newItemAddCmd(app),
		newItemUpdateCmd(app),
		newItemDeleteCmd(app),
		newItemShowCmd(app),
		newItemTreeCmd(app),
	)
	return cmd
}

func newItemAddCmd(app *App) *cobra.Command {
	var in service.ItemInput
	var parent string
	var relations map[string]string

	cmd := &cobra.Command{
		Use:   "add <plan-id>",
		Short: "Add an item under the plan (needs the edit lease)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			if parent != "" {
				in.ParentIndex = &parent
			}
			if len(relations) > 0 {
				in.Relations = relations
			}
			it, err := app.Tree.CreateItem(cmd.Context(), who, args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s [%s] total %s\n",
				formatter.StyleBlue.Render(it.Index), it.Name, it.WorkCode, formatter.Money(it.TotalPrice))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Index, "index", "", "Dotted index, e.g. 1.2.3")
	f.StringVar(&parent, "parent", "", "Parent item's index")
	f.StringVar(&in.WorkCode, "code", "", "Work code (generated when empty)")
	f.StringVar(&in.Name, "name", "", "Item name")
	f.StringVar(&in.Unit, "unit", "", "Unit of measure")
	f.Var(newDecimalValue(&in.Quantity), "qty", "Planned quantity")
	f.Var(newDecimalValue(&in.UnitPrice), "price", "Unit price")
	f.Var(newDateValue(&in.StartDate), "start", "Planned start (YYYY-MM-DD)")
	f.Var(newDateValue(&in.EndDate), "end", "Planned end (YYYY-MM-DD)")
	f.StringToStringVar(&relations, "rel", nil, "Relation to another item, e.g. follows=WC-1a2b3c4d")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newItemUpdateCmd(app *App) *cobra.Command {
	var (
		index, parent, name, unit string
		clearParent               bool
		qty, price                decimal.Decimal
		start, end                *time.Time
		relations                 map[string]string
	)

	cmd := &cobra.Command{
		Use:   "update <work-code>",
		Short: "Change an item's fields; renaming its index moves its children along",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			var patch domain.PlanItemPatch
			if f.Changed("index") {
				patch.Index = &index
			}
			if f.Changed("parent") {
				patch.ParentIndex = &parent
			}
			patch.ClearParent = clearParent
			if f.Changed("name") {
				patch.Name = &name
			}
			if f.Changed("unit") {
				patch.Unit = &unit
			}
			if f.Changed("qty") {
				patch.Quantity = &qty
			}
			if f.Changed("price") {
				patch.UnitPrice = &price
			}
			patch.StartDate = start
			patch.EndDate = end
			if f.Changed("rel") {
				patch.Relations = relations
			}

			it, err := app.Tree.UpdateItem(cmd.Context(), who, args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s [%s] total %s\n",
				formatter.StyleBlue.Render(it.Index), it.Name, it.WorkCode, formatter.Money(it.TotalPrice))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&index, "index", "", "New dotted index")
	f.StringVar(&parent, "parent", "", "New parent index")
	f.BoolVar(&clearParent, "clear-parent", false, "Make the item top-level")
	f.StringVar(&name, "name", "", "New name")
	f.StringVar(&unit, "unit", "", "New unit")
	f.Var(newDecimalValue(&qty), "qty", "New quantity")
	f.Var(newDecimalValue(&price), "price", "New unit price")
	f.Var(newDateValue(&start), "start", "New planned start (YYYY-MM-DD)")
	f.Var(newDateValue(&end), "end", "New planned end (YYYY-MM-DD)")
	f.StringToStringVar(&relations, "rel", nil, "Replace relations, e.g. follows=WC-1a2b3c4d")
	cmd.MarkFlagsMutuallyExclusive("parent", "clear-parent")
	return cmd
}

func newItemDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <work-code>",
		Short: "Soft-delete a leaf item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			if err := app.Tree.DeleteItem(cmd.Context(), who, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newItemShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-code>",
		Short: "Show an item and its detail lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := app.Tree.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			lines, err := app.Ledger.ListDetails(cmd.Context(), it.WorkCode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.KeyValues([][2]string{
				{"Item", formatter.StyleBlue.Render(it.Index) + " " + formatter.Bold(it.Name)},
				{"Work code", it.WorkCode},
				{"Parent", formatter.Optional(it.ParentIndex)},
				{"Quantity", formatter.Qty(it.Quantity) + " " + it.Unit},
				{"Unit price", formatter.Money(it.UnitPrice)},
				{"Total", formatter.Money(it.TotalPrice)},
				{"Planned", formatter.Span(it.StartDate, it.EndDate)},
			}))
			if len(it.Relations) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, formatter.Header("Relations"))
				keys := make([]string, 0, len(it.Relations))
				for k := range it.Relations {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "%s → %s\n", k, it.Relations[k])
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, formatter.Header("Details"))
			fmt.Fprint(out, detailTable(lines))
			return nil
		},
	}
}

func newItemTreeCmd(app *App) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "tree <plan-id>",
		Short: "Draw the plan's WBS (or one subtree with --root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := app.Tree.Tree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outline, err := tree.Outline(root)
			if err != nil {
				return err
			}
			if len(outline) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("The plan has no items yet."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTree(formatter.OutlineItems(outline, func(it *domain.PlanItem) string {
				return it.WorkCode + "  " + formatter.Money(it.TotalPrice)
			})))
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Index of the subtree root")
	return cmd
}

func detailTable(lines []*domain.DetailLine) string {
	if len(lines) == 0 {
		return formatter.Dim("No detail lines.") + "\n"
	}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l.ID, string(l.Resource.Kind()), l.Resource.ID(),
			formatter.Qty(l.Quantity), formatter.Money(l.UnitPrice), formatter.Money(l.Total)})
	}
	return formatter.Table{
		Headers: []string{"LINE", "KIND", "RESOURCE", "QTY", "PRICE", "TOTAL"},
		Rows:    rows,
		Numeric: map[int]bool{3: true, 4: true, 5: true},
	}.Render()
}
