package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create construction plans and record reviewer approvals",
	}
	cmd.AddCommand(
		newPlanCreateCmd(app),
		newPlanListCmd(app),
		newPlanShowCmd(app),
		newPlanApproveCmd(app),
	)
	return cmd
}

func newPlanCreateCmd(app *App) *cobra.Command {
	var project, name string
	var reviewers []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			projectID, err := resolveProjectID(cmd.Context(), app, project)
			if err != nil {
				return err
			}
			p, err := app.Plans.Create(cmd.Context(), who, projectID, name, reviewers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s (%s)\n", formatter.Bold(p.Name), p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name")
	cmd.Flags().StringVar(&name, "name", "", "Plan name")
	cmd.Flags().StringSliceVar(&reviewers, "reviewer", nil, "Reviewer who must approve (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := resolveProjectID(cmd.Context(), app, project)
			if err != nil {
				return err
			}
			plans, err := app.Plans.List(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, []string{p.ID, p.Name, approvalSummary(p.Reviewers), p.CreatedBy})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "NAME", "APPROVAL", "CREATED BY"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan with its reviewers and edit lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Plans.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pairs := [][2]string{
				{"Plan", p.Name},
				{"ID", p.ID},
				{"Project", p.ProjectID},
				{"Created by", p.CreatedBy},
				{"Approval", approvalSummary(p.Reviewers)},
			}
			for _, r := range sortedReviewers(p.Reviewers) {
				mark := formatter.StyleDim.Render("○ pending")
				if p.Reviewers[r] {
					mark = formatter.StyleGreen.Render("✔ approved")
				}
				pairs = append(pairs, [2]string{"  " + r, mark})
			}
			pairs = append(pairs, [2]string{"Lease", leaseSummary(cmd, app, p.ID)})
			fmt.Fprint(cmd.OutOrStdout(), formatter.KeyValues(pairs))
			return nil
		},
	}
}

func newPlanApproveCmd(app *App) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "approve <plan-id>",
		Short: "Record your approval of a plan (or withdraw it with --revoke)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			p, err := app.Plans.SetApproval(cmd.Context(), args[0], who, !revoke)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, approvalSummary(p.Reviewers))
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Withdraw a previous approval")
	return cmd
}

func approvalSummary(r domain.ReviewerApprovals) string {
	if len(r) == 0 {
		return formatter.Dim("no reviewers")
	}
	n := 0
	for _, ok := range r {
		if ok {
			n++
		}
	}
	label := fmt.Sprintf("%d/%d approved", n, len(r))
	if r.Approved() {
		return formatter.StyleGreen.Render(label)
	}
	return formatter.StyleYellow.Render(label)
}

func sortedReviewers(r domain.ReviewerApprovals) []string {
	out := make([]string, 0, len(r))
	for id := range r {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func leaseSummary(cmd *cobra.Command, app *App, planID string) string {
	l, err := app.Leases.Get(cmd.Context(), planID)
	if err != nil {
		return formatter.Dim("free")
	}
	return fmt.Sprintf("held by %s until %s", formatter.Bold(l.HolderID), l.ExpiresAt.Local().Format(time.Kitchen))
}
