package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/normalizer"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
)

// session is the state of an interactive session. Inputs are loaded once; every
// change re-runs the cascade from scratch.
type session struct {
	app         *AppContext
	out         io.Writer
	inputs      normalizer.Inputs
	loaded      bool
	mode        model.Mode
	adjustments []services.Adjustment
	filter      report.Filter
	last        *services.Evaluation
}

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session to tune deltas and re-run the cascade",
		Long: `Start an interactive session. Inputs are loaded once and the cascade re-runs after
every adjustment, so you can press + and - on positions and watch the awards change.
Any other command (runAwards, listRuns, ...) can be run from the prompt as well.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := app.Mode("")
			if err != nil {
				return err
			}

			s := &session{app: app, out: os.Stdout, mode: mode}
			if err := s.load(input); err != nil {
				return err
			}

			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			// Sibling commands, excluding interactive itself
			commands := make(map[string]*cobra.Command)
			for _, subCmd := range cmd.Parent().Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					commands[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				parts, err := parseCommandLine(line)
				if err != nil {
					fmt.Printf("❌ Error parsing command: %v\n\n", err)
					continue
				}
				if len(parts) == 0 {
					continue
				}
				cmdName := parts[0]
				cmdArgs := parts[1:]

				if cmdName == "exit" || cmdName == "quit" {
					fmt.Println("👋 Goodbye!")
					return nil
				}

				if cmdName == "help" {
					printInteractiveHelp(commands)
					continue
				}

				handled, err := s.handle(cmdName, cmdArgs)
				if handled {
					if err != nil {
						fmt.Printf("❌ Error: %v\n\n", err)
					}
					continue
				}

				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				if err := runSubcommand(targetCmd, cmdArgs); err != nil {
					fmt.Printf("❌ Error: %v\n\n", err)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory or bundle file, overriding the configured source")

	return cmd
}

// runSubcommand resets the command's flags and calls RunE directly, so PersistentPreRunE
// does not set the app up a second time
func runSubcommand(targetCmd *cobra.Command, args []string) error {
	targetCmd.Flags().VisitAll(resetFlag)

	if err := targetCmd.ParseFlags(args); err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	args = targetCmd.Flags().Args()
	if targetCmd.Args != nil {
		if err := targetCmd.Args(targetCmd, args); err != nil {
			return err
		}
	}

	if targetCmd.RunE != nil {
		return targetCmd.RunE(targetCmd, args)
	}
	if targetCmd.Run != nil {
		targetCmd.Run(targetCmd, args)
	}
	return nil
}

func resetFlag(flag *pflag.Flag) {
	flag.Changed = false
	// Setting a slice flag to its "[]" default would append a literal "[]"
	if sv, ok := flag.Value.(pflag.SliceValue); ok {
		_ = sv.Replace(nil)
		return
	}
	_ = flag.Value.Set(flag.DefValue)
}

func (s *session) load(path string) error {
	source, err := s.app.InputSource(path)
	if err != nil {
		return err
	}

	inputs, err := services.LoadInputs(s.app.Ctx, source, s.app.Logger)
	if err != nil {
		return err
	}

	s.inputs = inputs
	s.loaded = true
	s.last = nil
	return nil
}

// handle runs a session command. It reports false for names it does not own.
func (s *session) handle(name string, args []string) (bool, error) {
	switch name {
	case "+", "-":
		return true, s.nudge(name, args)
	case "adjust":
		return true, s.adjust(args)
	case "reset":
		s.adjustments = nil
		return true, s.run()
	case "mode":
		return true, s.setMode(args)
	case "run", "show":
		return true, s.run()
	case "filter":
		s.filter.Query = strings.Join(args, " ")
		return true, s.show()
	case "category":
		return true, s.setCategory(args)
	case "positions":
		s.printPositions()
		return true, nil
	case "export":
		return true, s.export(args)
	case "reload":
		if err := s.load(strings.Join(args, " ")); err != nil {
			return true, err
		}
		return true, s.run()
	}
	return false, nil
}

// nudge handles "+ SEA CA" and "- SEA CA"
func (s *session) nudge(sign string, args []string) error {
	pos, ok := normalizer.ParsePositionToken(strings.Join(args, " "))
	if !ok {
		return fmt.Errorf("usage: %s <base> <seat>", sign)
	}
	delta := 1
	if sign == "-" {
		delta = -1
	}
	s.adjustments = append(s.adjustments, services.Adjustment{Position: pos, Delta: delta})
	return s.run()
}

func (s *session) adjust(args []string) error {
	adjustments, err := services.ParseAdjustments([]string{strings.Join(args, " ")})
	if err != nil {
		return err
	}
	s.adjustments = append(s.adjustments, adjustments...)
	return s.run()
}

func (s *session) setMode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mode <upgrades|open>")
	}
	mode, err := model.ParseMode(args[0])
	if err != nil {
		return err
	}
	s.mode = mode
	return s.run()
}

func (s *session) setCategory(args []string) error {
	value := ""
	if len(args) > 0 {
		value = args[0]
	}
	category, err := report.ParseCategory(value)
	if err != nil {
		return err
	}
	s.filter.Category = category
	return s.show()
}

func (s *session) run() error {
	if !s.loaded {
		return fmt.Errorf("no inputs loaded")
	}
	eval, err := services.Evaluate(s.app.Ctx, s.inputs, s.mode, s.adjustments, s.app.Logger)
	if err != nil {
		return err
	}
	s.last = eval
	return s.show()
}

func (s *session) show() error {
	if s.last == nil {
		return s.run()
	}
	if len(s.adjustments) > 0 {
		fmt.Fprintf(s.out, "\nAdjustments: %s\n", services.FormatAdjustments(s.adjustments))
	}
	printReport(s.out, s.last.Report, s.filter.Apply(s.last.Report.Awards))
	return nil
}

// printPositions lists every position with its seeded delta after adjustments and
// the pilots who end up there in the last run
func (s *session) printPositions() {
	capacities := services.ApplyAdjustments(s.inputs.Capacities, s.adjustments)

	var occupants map[string][]int
	if s.last != nil {
		occupants = report.Occupancy(s.last.Report.Awards)
	}

	sort.SliceStable(capacities, func(i, j int) bool {
		return capacities[i].Position.Less(capacities[j].Position)
	})

	fmt.Fprintln(s.out)
	for _, c := range capacities {
		fmt.Fprintf(s.out, "  %-10s incumbents %-4d delta %+d  occupants %v\n",
			c.Position, c.Incumbents, c.Delta, occupants[c.Position.Key()])
	}
	fmt.Fprintln(s.out)
}

func (s *session) export(args []string) error {
	if s.last == nil {
		if err := s.run(); err != nil {
			return err
		}
	}
	path := strings.Join(args, " ")
	if path == "" {
		path = s.app.Cfg.ExportPath
	}
	if path == "" {
		return fmt.Errorf("usage: export <path.csv>")
	}
	return exportAwards(s.app, path, s.last.Report.Awards)
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nSession commands:")
	fmt.Println("  + <base> <seat>                Add one seeded vacancy at a position")
	fmt.Println("  - <base> <seat>                Remove one seeded vacancy at a position")
	fmt.Println("  adjust <base> <seat>=<n>       Add n to a position's delta")
	fmt.Println("  reset                          Drop all adjustments")
	fmt.Println("  mode <upgrades|open>           Switch cascade mode")
	fmt.Println("  run, show                      Re-run and print the awards")
	fmt.Println("  filter [text]                  Only show awards matching text")
	fmt.Println("  category [name]                all, moved, upgrade, lateral or stayed")
	fmt.Println("  positions                      List positions, deltas and occupants")
	fmt.Println("  export [path]                  Write the awards to CSV")
	fmt.Println("  reload [path]                  Reload inputs")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nOther commands:")
	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-30s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Println("\n  help                           Show this help message")
	fmt.Println("  exit, quit                     Exit the interactive session")
}

// parseCommandLine splits a command line into arguments, respecting single and double quotes
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inQuote rune

	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
		case unicode.IsSpace(r):
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args, nil
}
