// Package listing holds the case list view: in-memory search and filtering,
// hearing status derivation, upcoming hearing alerts and spreadsheet export.
package listing

import (
	"strings"

	"github.com/linesmerrill/legal-case-api/models"
)

// All matches every value of a filter dimension
const All = "all"

// Filter is the active search term plus the status, type and court selectors.
// An empty selector behaves like All.
type Filter struct {
	Search string `form:"search"`
	Status string `form:"status"`
	Type   string `form:"type"`
	Court  string `form:"court"`
}

func unset(selector string) bool {
	return selector == "" || selector == All
}

// Match reports whether c passes every part of the filter
func (f Filter) Match(c models.Case) bool {
	return f.matchesSearch(c) &&
		(unset(f.Status) || string(c.CaseStatus) == f.Status) &&
		(unset(f.Type) || string(c.CaseType) == f.Type) &&
		(unset(f.Court) || c.Court == f.Court)
}

func (f Filter) matchesSearch(c models.Case) bool {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	var clientName string
	if c.ClientDetails != nil {
		clientName = c.ClientDetails.Name
	}
	for _, field := range []string{
		c.Subject,
		clientName,
		c.Court,
		c.District,
		c.Taluk,
		string(c.CaseType),
		c.Description,
		c.CaseNumber,
	} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Apply returns the cases matching f, preserving order
func Apply(cs []models.Case, f Filter) []models.Case {
	out := make([]models.Case, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Courts lists the distinct non-empty courts in first-seen order
func Courts(cs []models.Case) []string {
	seen := map[string]bool{}
	var courts []string
	for _, c := range cs {
		if c.Court == "" || seen[c.Court] {
			continue
		}
		seen[c.Court] = true
		courts = append(courts, c.Court)
	}
	return courts
}
