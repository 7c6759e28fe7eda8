package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
)

// PublishAwardsCmd creates the publishAwards command
func PublishAwardsCmd(app *AppContext) *cobra.Command {
	var spreadsheetID string

	cmd := &cobra.Command{
		Use:   "publishAwards [run_id]",
		Short: "Publish a saved run's awards to a new tab of the awards spreadsheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			if spreadsheetID == "" {
				spreadsheetID = app.Cfg.AwardsSheetID
			}

			store, err := app.Store()
			if err != nil {
				return err
			}

			client, err := app.SheetsClient()
			if err != nil {
				return err
			}

			tab, err := services.PublishAwards(app.Ctx, store, client, spreadsheetID, runID, app.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Awards published to tab %q\n", tab)
			fmt.Printf("  https://docs.google.com/spreadsheets/d/%s\n\n", spreadsheetID)
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "sheet", "", "Spreadsheet ID (default from config awardsSheetID)")

	return cmd
}
