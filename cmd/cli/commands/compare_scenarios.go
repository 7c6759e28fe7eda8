package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
)

// CompareScenariosCmd creates the compareScenarios command
func CompareScenariosCmd(app *AppContext) *cobra.Command {
	var (
		mode  string
		input string
	)

	cmd := &cobra.Command{
		Use:   "compareScenarios <scenario>...",
		Short: "Compare award outcomes under different delta adjustments",
		Long: `Run the cascade once without adjustments and once per scenario, then list the
pilots whose award changes. Each scenario is written as

  "name:SEA CA=+1;LAX FO=-1"

and the name may be left out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runMode, err := app.Mode(mode)
			if err != nil {
				return err
			}

			scenarios := make([]services.Scenario, 0, len(args))
			for _, arg := range args {
				s, err := services.ParseScenario(arg)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, s)
			}

			source, err := app.InputSource(input)
			if err != nil {
				return err
			}

			inputs, err := services.LoadInputs(app.Ctx, source, app.Logger)
			if err != nil {
				return err
			}

			result, err := services.CompareScenarios(app.Ctx, inputs, scenarios, runMode, app.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("\nBaseline (%s)\n", runMode)
			printSummary(os.Stdout, result.Baseline.Summary)

			for _, sr := range result.Scenarios {
				fmt.Printf("\nScenario %q [%s]\n", sr.Scenario.Name, services.FormatAdjustments(sr.Scenario.Adjustments))
				printSummary(os.Stdout, sr.Report.Summary)
				printChanges(os.Stdout, sr.Changes)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Cascade mode: upgrades or open (default from config)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory or bundle file, overriding the configured source")

	return cmd
}
