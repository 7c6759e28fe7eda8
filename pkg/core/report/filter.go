package report

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

// Category narrows a filter to one kind of outcome
type Category string

const (
	CategoryAll     Category = "all"
	CategoryMoved   Category = "moved"
	CategoryUpgrade Category = "upgrade"
	CategoryLateral Category = "lateral"
	CategoryStayed  Category = "stayed"
)

// ParseCategory accepts a category name in any case. Empty means CategoryAll.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryMoved, CategoryUpgrade, CategoryLateral, CategoryStayed:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Filter selects awards for display
type Filter struct {
	// Query is matched case-insensitively against name, seniority, from, to and note
	Query    string
	Category Category
}

// Apply returns the awards matching f in their original order
func (f Filter) Apply(awards []model.Award) []model.Award {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))

	out := make([]model.Award, 0, len(awards))
	for _, a := range awards {
		if !f.Category.matches(a) {
			continue
		}
		if query != "" && !strings.Contains(fold.String(searchText(a)), query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c Category) matches(a model.Award) bool {
	switch c {
	case CategoryMoved:
		return a.Moved
	case CategoryUpgrade:
		return a.Upgrade
	case CategoryLateral:
		return a.Note == model.NoteLateral
	case CategoryStayed:
		return !a.Moved
	}
	return true
}

func searchText(a model.Award) string {
	return strings.Join([]string{
		a.Name,
		strconv.Itoa(a.Seniority),
		a.FromPosition.String(),
		a.ToPosition.String(),
		string(a.Note),
	}, " ")
}
