package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// CSVHeader is the first row of every export
var CSVHeader = []string{"Seniority", "Name", "From", "To", "Pref", "Moved", "Upgrade", "Note"}

// Rows renders awards in export column order without the header.
// Pref is blank when no preference matched. Moved and Upgrade are "Y" or blank.
func Rows(awards []model.Award) [][]string {
	rows := make([][]string, 0, len(awards))
	for _, a := range awards {
		pref := ""
		if a.PreferenceRank > 0 {
			pref = strconv.Itoa(a.PreferenceRank)
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Seniority),
			a.Name,
			a.FromPosition.String(),
			a.ToPosition.String(),
			pref,
			flag(a.Moved),
			flag(a.Upgrade),
			string(a.Note),
		})
	}
	return rows
}

// WriteCSV writes the header and one row per award
func WriteCSV(w io.Writer, awards []model.Award) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(Rows(awards)); err != nil {
		return fmt.Errorf("failed to write awards: %w", err)
	}
	return nil
}

// ExportCSV writes awards to path. Readers never see a partially written file.
func ExportCSV(path string, awards []model.Award) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup()

	if err := WriteCSV(pending, awards); err != nil {
		return err
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return ""
}
