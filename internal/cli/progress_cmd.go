package cli

import (
	"fmt"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newProgressCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Track actual work against a plan on a project",
	}
	cmd.AddCommand(
		newProgressMaterializeCmd(app),
		newProgressResyncCmd(app),
		newProgressShowCmd(app),
		newProgressReportCmd(app),
		newProgressUsageCmd(app),
		newProgressDetailsCmd(app),
	)
	return cmd
}

func newProgressMaterializeCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "materialize <plan-id>",
		Short: "Create the plan's progress overlay on a project, or fill in missing items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := resolveProjectID(cmd.Context(), app, project)
			if err != nil {
				return err
			}
			res, err := app.Progress.Materialize(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), syncSummary(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newProgressResyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resync <plan-id>",
		Short: "Bring every progress overlay of the plan in line with its current tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := app.Progress.Resync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("The plan has no progress overlays."))
				return nil
			}
			for _, res := range results {
				fmt.Fprintln(cmd.OutOrStdout(), syncSummary(res))
			}
			return nil
		},
	}
}

func newProgressShowCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show progress of every item of a plan on a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := resolveProjectID(cmd.Context(), app, project)
			if err != nil {
				return err
			}
			p, err := app.Progress.GetProgress(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			items, err := app.Progress.ListItems(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{
					it.ID,
					formatter.StyleBlue.Render(it.Index),
					it.Name,
					formatter.RenderProgress(it.ProgressPercent, 10),
					formatter.ProgressStatusPill(it.Status),
					formatter.Qty(it.UsedQuantity) + "/" + formatter.Qty(it.Quantity),
					formatter.Span(it.ActualStart, it.ActualEnd),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Header("Progress "+p.ID))
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "INDEX", "NAME", "PROGRESS", "STATUS", "USED", "ACTUAL"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newProgressReportCmd(app *App) *cobra.Command {
	var percent, used decimal.Decimal
	var status string

	cmd := &cobra.Command{
		Use:   "report <progress-item-id>",
		Short: "Report percent complete, a status change or used quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var r domain.ProgressReport
			if f.Changed("percent") {
				r.Percent = &percent
			}
			if f.Changed("used") {
				r.UsedQuantityDelta = &used
			}
			if status != "" {
				s, err := domain.ParseProgressStatus(status)
				if err != nil {
					return err
				}
				r.Status = &s
			}
			if r.Percent == nil && r.Status == nil && r.UsedQuantityDelta == nil {
				return fmt.Errorf("nothing to report: pass --percent, --status or --used")
			}

			it, err := app.Progress.ReportProgress(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  %s\n",
				formatter.StyleBlue.Render(it.Index), it.Name,
				formatter.RenderProgress(it.ProgressPercent, 10), formatter.ProgressStatusPill(it.Status))
			return nil
		},
	}

	cmd.Flags().Var(newDecimalValue(&percent), "percent", "Percent complete (0-100, never lower than before)")
	cmd.Flags().StringVar(&status, "status", "", "not_started|in_progress|paused|completed")
	cmd.Flags().Var(newDecimalValue(&used), "used", "Quantity used since the last report")
	return cmd
}

func newProgressUsageCmd(app *App) *cobra.Command {
	var delta decimal.Decimal

	cmd := &cobra.Command{
		Use:   "usage <progress-detail-id>",
		Short: "Record resource usage against a progress detail line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.Progress.ReportDetailUsage(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s used %s of %s\n",
				d.Resource, formatter.Qty(d.UsedQuantity), formatter.Qty(d.Quantity))
			return nil
		},
	}

	cmd.Flags().Var(newDecimalValue(&delta), "delta", "Quantity used since the last report")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func newProgressDetailsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "details <progress-item-id>",
		Short: "List the resource lines mirrored onto a progress item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := app.Progress.ListItemDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(details))
			for _, d := range details {
				rows = append(rows, []string{d.ID, d.Resource.String(),
					formatter.Qty(d.Quantity), formatter.Qty(d.UsedQuantity), formatter.Money(d.Total)})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.Table{
				Headers: []string{"ID", "RESOURCE", "PLANNED", "USED", "TOTAL"},
				Rows:    rows,
				Numeric: map[int]bool{2: true, 3: true, 4: true},
			}.Render())
			return nil
		},
	}
}

func syncSummary(res *service.SyncResult) string {
	return fmt.Sprintf("Progress %s on project %s: %d created, %d updated, %d removed, %d detail line(s) mirrored",
		res.Progress.ID, res.Progress.ProjectID, res.Created, res.Updated, res.Removed, res.DetailsCreated)
}
