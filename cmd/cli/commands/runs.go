package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
)

// ListRunsCmd creates the listRuns command
func ListRunsCmd(app *AppContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "listRuns",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}

			runs, err := services.ListRuns(app.Ctx, store, app.Logger, limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs saved yet.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tMODE\tPILOTS\tMOVED\tADJUSTMENTS")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"), run.Mode, run.PilotCount, run.MovedCount, run.Adjustments)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

// ViewRunCmd creates the viewRun command
func ViewRunCmd(app *AppContext) *cobra.Command {
	var (
		filters filterFlags
		export  string
	)

	cmd := &cobra.Command{
		Use:   "viewRun [run_id]",
		Short: "Show the awards of a saved run (defaults to the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}

			store, err := app.Store()
			if err != nil {
				return err
			}

			var runID string
			if len(args) == 1 {
				runID = args[0]
			} else if runID, err = services.LatestRunID(app.Ctx, store); err != nil {
				return err
			}

			stored, err := services.GetRun(app.Ctx, store, app.Logger, runID)
			if err != nil {
				return err
			}

			fmt.Printf("\nRun %s (%s)\n", stored.Run.ID, stored.Run.CreatedAt.Local().Format("2006-01-02 15:04"))
			if stored.Run.Adjustments != "" {
				fmt.Printf("Adjustments: %s\n", stored.Run.Adjustments)
			}
			printReport(os.Stdout, stored.Report, filter.Apply(stored.Report.Awards))

			if export != "" {
				if err := exportAwards(app, export, stored.Report.Awards); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filters.query, "filter", "f", "", "Only show awards matching this text")
	cmd.Flags().StringVarP(&filters.category, "category", "c", "", "Only show awards in this category: all, moved, upgrade, lateral, stayed")
	cmd.Flags().StringVar(&export, "export", "", "Write the awards to this CSV path")

	return cmd
}
