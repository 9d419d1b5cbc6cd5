package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/spf13/cobra"
)

func newTransferCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Request and decide resource allocations and mobilizations",
	}
	cmd.AddCommand(
		newTransferSubmitCmd(app, domain.TransferAllocation),
		newTransferSubmitCmd(app, domain.TransferMobilization),
		newTransferDecisionCmd(app, "promote", "Move a draft into the approval queue"),
		newTransferDecisionCmd(app, "approve", "Approve a pending request and move its stock"),
		newTransferDecisionCmd(app, "reject", "Reject a pending request"),
		newTransferDeleteCmd(app),
		newTransferShowCmd(app),
		newTransferListCmd(app),
	)
	return cmd
}

func newTransferSubmitCmd(app *App, kind domain.TransferKind) *cobra.Command {
	var (
		in               service.TransferInput
		from, to         string
		fromTask, toTask string
		lines            []string
		priority         string
		requestDate      *time.Time
	)

	use, short := "allocate", "Request resources from another project"
	if kind == domain.TransferMobilization {
		use, short = "mobilize", "Request resources from the shared pool"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in.Kind = kind
			if kind == domain.TransferAllocation {
				if in.FromProjectID, err = resolveProjectID(ctx, app, from); err != nil {
					return err
				}
			}
			if in.ToProjectID, err = resolveProjectID(ctx, app, to); err != nil {
				return err
			}
			if fromTask != "" {
				in.FromTaskID = &fromTask
			}
			if toTask != "" {
				in.ToTaskID = &toTask
			}
			if in.Priority, err = domain.ParseTransferPriority(strings.ToLower(priority)); err != nil {
				return err
			}
			for _, raw := range lines {
				line, err := parseTransferLine(raw)
				if err != nil {
					return err
				}
				in.Lines = append(in.Lines, line)
			}
			in.RequestDate = requestDate

			req, err := app.Transfers.Submit(ctx, who, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s %s (%s) %s\n",
				req.Kind, formatter.Bold(req.Code), req.ID, formatter.TransferStatusPill(req.Status))
			return nil
		},
	}

	f := cmd.Flags()
	if kind == domain.TransferAllocation {
		f.StringVar(&from, "from", "", "Source project ID or name")
		f.StringVar(&fromTask, "from-task", "", "Source progress item ID")
		_ = cmd.MarkFlagRequired("from")
	}
	f.StringVar(&to, "to", "", "Destination project ID or name")
	f.StringVar(&toTask, "to-task", "", "Destination progress item ID")
	f.StringArrayVar(&lines, "line", nil, "Requested resource as kind:id=quantity (repeatable)")
	f.StringVar(&in.Code, "code", "", "Request code (numbered automatically when empty)")
	f.StringVar(&in.RequestType, "type", "", "Request type (default standard)")
	f.StringVar(&priority, "priority", "normal", "low|normal|high|urgent")
	f.BoolVar(&in.Draft, "draft", false, "Save as a draft outside the approval queue")
	f.Var(newDateValue(&requestDate), "date", "Request date (YYYY-MM-DD, default today)")
	f.StringVar(&in.Note, "note", "", "Free-text note")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

func newTransferDecisionCmd(app *App, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <request-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			var req *domain.TransferRequest
			switch use {
			case "promote":
				req, err = app.Transfers.Promote(cmd.Context(), who, args[0])
			case "approve":
				req, err = app.Transfers.Approve(cmd.Context(), args[0], who)
			default:
				req, err = app.Transfers.Reject(cmd.Context(), args[0], who)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", formatter.Bold(req.Code), formatter.TransferStatusPill(req.Status))
			return nil
		},
	}
}

func newTransferDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <request-id>",
		Short: "Delete a request that was not approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			if err := app.Transfers.Delete(cmd.Context(), who, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted request %s\n", args[0])
			return nil
		},
	}
}

func newTransferShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a request and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.Transfers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.KeyValues([][2]string{
				{"Code", formatter.Bold(req.Code)},
				{"Kind", string(req.Kind)},
				{"Type", req.RequestType},
				{"Status", formatter.TransferStatusPill(req.Status)},
				{"Priority", formatter.PriorityBadge(req.Priority)},
				{"From", formatter.ScopeLabel(req.FromProjectID) + taskSuffix(req.FromTaskID)},
				{"To", req.ToProjectID + taskSuffix(req.ToTaskID)},
				{"Requested", req.RequestDate.Format(formatter.DateLayout) + " by " + req.RequesterID},
				{"Decided", decisionSummary(req)},
				{"Note", req.Note},
			}))
			rows := make([][]string, 0, len(req.Lines))
			for _, l := range req.Lines {
				rows = append(rows, []string{string(l.Resource.Kind()), l.Resource.ID(), formatter.Qty(l.Quantity)})
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, formatter.Table{
				Headers: []string{"KIND", "RESOURCE", "QTY"},
				Rows:    rows,
				Numeric: map[int]bool{2: true},
			}.Render())
			return nil
		},
	}
}

func newTransferListCmd(app *App) *cobra.Command {
	var kind, status string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transfer requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.TransferFilter{IncludeDeleted: all, Status: domain.TransferStatus(status)}
			if kind != "" {
				k, err := domain.ParseTransferKind(kind)
				if err != nil {
					return err
				}
				f.Kind = k
			}
			reqs, err := app.Transfers.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(reqs))
			for _, r := range reqs {
				st := formatter.TransferStatusPill(r.Status)
				if r.Deleted {
					st = formatter.Dim("deleted")
				}
				rows = append(rows, []string{r.ID, r.Code, string(r.Kind), st, formatter.PriorityBadge(r.Priority),
					formatter.ScopeLabel(r.FromProjectID), r.ToProjectID, r.RequestDate.Format(formatter.DateLayout)})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "CODE", "KIND", "STATUS", "PRIORITY", "FROM", "TO", "DATE"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "allocation|mobilization")
	cmd.Flags().StringVar(&status, "status", "", "draft|pending|approved|rejected")
	cmd.Flags().BoolVar(&all, "all", false, "Include deleted requests")
	return cmd
}

func taskSuffix(task *string) string {
	if task == nil {
		return ""
	}
	return formatter.Dim(" task " + *task)
}

func decisionSummary(r *domain.TransferRequest) string {
	if r.ApproverID == nil || r.DecidedAt == nil {
		return formatter.Dim("-")
	}
	return r.DecidedAt.Format(formatter.DateLayout) + " by " + *r.ApproverID
}
