package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/foreman/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Directory service.DirectoryService
	Plans     service.PlanService
	Leases    service.LeaseService
	Tree      service.TreeService
	Ledger    service.LedgerService
	Progress  service.ProgressService
	Transfers service.TransferService
	Inventory service.InventoryService
	Import    service.ImportService

	// Actor is the default acting identity; --as overrides it per call.
	Actor string
}

// NewRootCmd creates the top-level "foreman" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "foreman",
		Short:         "Construction work breakdown, progress and resource transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("as", app.Actor, "Acting identity (defaults to FOREMAN_ACTOR or $USER)")

	root.AddCommand(
		newProjectCmd(app),
		newResourceCmd(app),
		newPlanCmd(app),
		newLeaseCmd(app),
		newItemCmd(app),
		newDetailCmd(app),
		newImportCmd(app),
		newProgressCmd(app),
		newTransferCmd(app),
		newInventoryCmd(app),
	)

	return root
}

// actor returns the identity a command acts as.
func actor(cmd *cobra.Command) (string, error) {
	as, _ := cmd.Flags().GetString("as")
	as = strings.TrimSpace(as)
	if as == "" {
		return "", fmt.Errorf("no acting identity: pass --as or set FOREMAN_ACTOR")
	}
	return as, nil
}
