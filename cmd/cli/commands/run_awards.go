package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
	"github.com/jakechorley/vacancy-cascade/pkg/db"
)

// RunAwardsCmd creates the runAwards command
func RunAwardsCmd(app *AppContext) *cobra.Command {
	var (
		mode    string
		adjust  []string
		input   string
		save    bool
		export  string
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "runAwards",
		Short: "Run the vacancy cascade and print each pilot's award",
		Long: `Run the vacancy cascade over the configured inputs and print the awards,
the unfilled backfill per position and a summary.

Adjustments nudge a position's seeded delta before the run, e.g. --adjust "SEA CA=+1".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runMode, err := app.Mode(mode)
			if err != nil {
				return err
			}

			adjustments, err := services.ParseAdjustments(adjust)
			if err != nil {
				return err
			}

			filter, err := filters.filter()
			if err != nil {
				return err
			}

			source, err := app.InputSource(input)
			if err != nil {
				return err
			}

			var store db.RunStore
			if save {
				if store, err = app.Store(); err != nil {
					return err
				}
			}

			result, err := services.RunAwards(app.Ctx, source, store, app.Logger, services.RunAwardsOptions{
				Mode:        runMode,
				Adjustments: adjustments,
				Save:        save,
			})
			if err != nil {
				return err
			}
			return showRunResult(app, result, filter, export)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Cascade mode: upgrades or open (default from config)")
	cmd.Flags().StringArrayVarP(&adjust, "adjust", "a", nil, `Delta adjustment such as "SEA CA=+1" (repeatable)`)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory or bundle file, overriding the configured source")
	cmd.Flags().BoolVar(&save, "save", false, "Save the run to history")
	cmd.Flags().StringVar(&export, "export", "", "Write the awards to this CSV path")
	cmd.Flags().StringVarP(&filters.query, "filter", "f", "", "Only show awards matching this text")
	cmd.Flags().StringVarP(&filters.category, "category", "c", "", "Only show awards in this category: all, moved, upgrade, lateral, stayed")

	return cmd
}

func showRunResult(app *AppContext, result *services.RunAwardsResult, filter report.Filter, export string) error {
	printReport(os.Stdout, result.Report, filter.Apply(result.Report.Awards))

	if result.RunID != "" {
		fmt.Printf("✓ Run saved with ID %s\n", result.RunID)
	}

	if export == "" {
		export = app.Cfg.ExportPath
	}
	if export != "" {
		return exportAwards(app, export, result.Report.Awards)
	}
	return nil
}

func exportAwards(app *AppContext, path string, awards []model.Award) error {
	if err := report.ExportCSV(path, awards); err != nil {
		return err
	}
	app.Logger.Info("Awards exported", zap.String("path", path), zap.Int("awards", len(awards)))
	fmt.Printf("✓ Awards written to %s\n", path)
	return nil
}
