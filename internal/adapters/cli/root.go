package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/application/common"
	"github.com/ozdirect/pricesync/internal/application/schedule"
	appsync "github.com/ozdirect/pricesync/internal/application/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

// App bundles the wired services the CLI commands dispatch against.
type App struct {
	Mediator  common.Mediator
	Scheduler *schedule.Service
	Sync      *appsync.Service
	Queue     *tasks.Queue
	Logger    *zap.Logger
}

// NewRootCommand creates the root command for the CLI
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricesync",
		Short: "Catalog synchronization and pricing engine",
		Long: `pricesync keeps a supplier-enriched SKU master store in sync with the
storefront catalog, recomputes freight-aware prices, and exports per-country
diff CSVs for the downstream marketplace.

Examples:
  pricesync daemon
  pricesync sync
  pricesync calc
  pricesync price-reset
  pricesync export --country AU
  pricesync apply --job AU_20260824T031500_a1b2c3 --applier ops`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(NewDaemonCommand(app))
	rootCmd.AddCommand(NewSyncCommand(app))
	rootCmd.AddCommand(NewCalcCommand(app))
	rootCmd.AddCommand(NewPriceResetCommand(app))
	rootCmd.AddCommand(NewExportCommand(app))
	rootCmd.AddCommand(NewApplyCommand(app))

	return rootCmd
}

// Execute runs the root command
func Execute(app *App) {
	rootCmd := NewRootCommand(app)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
