package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
	"github.com/jakechorley/vacancy-cascade/pkg/core/report"
	"github.com/jakechorley/vacancy-cascade/pkg/core/services"
)

func printAwards(w io.Writer, awards []model.Award) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEN\tNAME\tFROM\tTO\tPREF\tNOTE")
	for _, a := range awards {
		pref := "-"
		if a.PreferenceRank > 0 {
			pref = strconv.Itoa(a.PreferenceRank)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", a.Seniority, a.Name, a.FromPosition, a.ToPosition, pref, a.Note)
	}
	tw.Flush()
}

func printBackfill(w io.Writer, rows []report.BackfillRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tBACKFILL")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", row.Position, row.Count)
	}
	tw.Flush()
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "Pilots: %d  Moved: %d  Upgrades: %d  Laterals: %d  Stayed: %d  Stayed (listed): %d\n",
		s.Total, s.Moved, s.Upgrades, s.Laterals, s.Stayed, s.StayedListed)
}

func printReport(w io.Writer, r *report.Report, awards []model.Award) {
	fmt.Fprintf(w, "\nMode: %s\n\n", r.Mode)
	printAwards(w, awards)
	if len(awards) != len(r.Awards) {
		fmt.Fprintf(w, "(%d of %d awards shown)\n", len(awards), len(r.Awards))
	}
	fmt.Fprintln(w)
	printBackfill(w, r.Backfill)
	fmt.Fprintln(w)
	printSummary(w, r.Summary)
	fmt.Fprintln(w)
}

func printChanges(w io.Writer, changes []services.AwardChange) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "  No awards change")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SEN\tNAME\tBASELINE\tSCENARIO")
	for _, c := range changes {
		fmt.Fprintf(tw, "  %d\t%s\t%s (%s)\t%s (%s)\n",
			c.Seniority, c.Name, c.Baseline.ToPosition, c.Baseline.Note, c.Scenario.ToPosition, c.Scenario.Note)
	}
	tw.Flush()
}

// filterFlags are shared by commands that print awards
type filterFlags struct {
	query    string
	category string
}

func (f *filterFlags) filter() (report.Filter, error) {
	category, err := report.ParseCategory(f.category)
	if err != nil {
		return report.Filter{}, err
	}
	return report.Filter{Query: f.query, Category: category}, nil
}
