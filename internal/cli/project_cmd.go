package cli

import (
	"fmt"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Register construction projects",
	}
	cmd.AddCommand(newProjectAddCmd(app), newProjectListCmd(app))
	return cmd
}

func newProjectAddCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Directory.AddProject(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", formatter.Bold(p.Name), p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Directory.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No projects yet. Add one with: foreman project add --name ..."))
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Name, p.CreatedAt.Format(formatter.DateLayout)})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "NAME", "CREATED"}, rows))
			return nil
		},
	}
}

func newResourceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Register materials, workers, vehicles and teams",
	}
	cmd.AddCommand(newResourceAddCmd(app), newResourceListCmd(app))
	return cmd
}

func newResourceAddCmd(app *App) *cobra.Command {
	var name, unit string

	cmd := &cobra.Command{
		Use:   "add <kind:id>",
		Short: "Register a resource, e.g. material:cement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResourceRef(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = ref.ID()
			}
			r, err := app.Directory.AddResource(cmd.Context(), ref, name, unit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s %s\n", r.Ref(), formatter.Dim(r.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the id)")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit of measure, e.g. t, m3, h")
	return cmd
}

func newResourceListCmd(app *App) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			var k domain.ResourceKind
			if kind != "" {
				parsed, err := domain.ParseResourceKind(kind)
				if err != nil {
					return err
				}
				k = parsed
			}
			resources, err := app.Directory.ListResources(cmd.Context(), k)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(resources))
			for _, r := range resources {
				rows = append(rows, []string{string(r.Kind), r.ID, r.Name, r.Unit})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"KIND", "ID", "NAME", "UNIT"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only this kind (material|worker|vehicle|team)")
	return cmd
}
