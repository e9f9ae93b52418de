package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ozdirect/pricesync/internal/application/export"
	"github.com/ozdirect/pricesync/internal/application/freight"
	"github.com/ozdirect/pricesync/internal/application/pricereset"
	appsync "github.com/ozdirect/pricesync/internal/application/sync"
	exportdomain "github.com/ozdirect/pricesync/internal/domain/export"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// NewDaemonCommand runs the scheduler tick loop until interrupted.
func NewDaemonCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and task workers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigs
				cancel()
			}()

			fmt.Println("pricesync daemon started")
			app.Scheduler.Run(ctx)
			app.Queue.Shutdown()
			fmt.Println("pricesync daemon stopped")
			return nil
		},
	}
}

// NewSyncCommand starts (or resumes) a full catalog synchronization and
// waits for the run to drain.
func NewSyncCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a full catalog synchronization",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Mediator.Send(cmd.Context(), appsync.StartFullSyncCommand{
				RunType: syncdomain.RunTypeManual,
			})
			if err != nil {
				return err
			}
			run := resp.(*syncdomain.Run)
			fmt.Printf("sync run %s started (bulk %s)\n", run.ID, run.ShopifyBulkID)
			app.Queue.Wait()
			return nil
		},
	}
}

// NewCalcCommand starts a manual freight calculation over stale SKUs.
func NewCalcCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "calc",
		Short: "Recalculate prices for SKUs whose attributes changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Mediator.Send(cmd.Context(), freight.RunCalcCommand{}); err != nil {
				return err
			}
			app.Queue.Wait()
			fmt.Println("freight calculation finished")
			return nil
		},
	}
}

// NewPriceResetCommand rolls back prices for promotions expiring by tomorrow.
func NewPriceResetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price-reset",
		Short: "Roll expiring promotions back to regular prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Mediator.Send(cmd.Context(), pricereset.RunPriceResetCommand{})
			if err != nil {
				return err
			}
			fmt.Printf("price reset changed %d SKUs\n", resp.(int))
			return nil
		},
	}
}

// NewExportCommand builds a diff CSV for one country.
func NewExportCommand(app *App) *cobra.Command {
	var country string
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Create a diff CSV export job for a country",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Mediator.Send(cmd.Context(), export.CreateExportJobCommand{
				Country:   country,
				CreatedBy: "cli",
			})
			if err != nil {
				return err
			}
			job := resp.(*exportdomain.Job)
			fmt.Printf("export job %s created: %s (%d rows)\n", job.ID, job.FileName, job.RowCount)
			if outPath != "" {
				if err := os.WriteFile(outPath, job.CsvBlob, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outPath, err)
				}
				fmt.Printf("wrote %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "AU", "Target country (AU or NZ)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the CSV to this path")
	return cmd
}

// NewApplyCommand commits an export job's diffs into the baseline.
func NewApplyCommand(app *App) *cobra.Command {
	var jobID string
	var applier string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an exported job back into the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.Mediator.Send(cmd.Context(), export.ApplyExportJobCommand{
				JobID:     jobID,
				ApplierID: applier,
			})
			if err != nil {
				return err
			}
			fmt.Printf("export job %s applied\n", jobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Export job id")
	cmd.Flags().StringVar(&applier, "applier", "cli", "Applier identity recorded on the job")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}
