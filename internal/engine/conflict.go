package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/kval/internal/model"
)

// quantityPattern extracts number+unit mentions from fact text, e.g.
// "Retention period is 24 months" → (24, month). Detection is lexical:
// paraphrased facts that express the same value differently are expected
// false negatives.
var quantityPattern = regexp.MustCompile(`(?i)\b(\d{1,6}(?:\.\d+)?)\s*(months?|weeks?|days?|hours?|years?|%|percent)\b?`)

// quantity is one extracted number+unit mention.
type quantity struct {
	Value float64
	Unit  string
}

// extractQuantities pulls all number+unit pairs from the given facts.
func extractQuantities(facts []string) []quantity {
	var out []quantity
	for _, fact := range facts {
		for _, m := range quantityPattern.FindAllStringSubmatch(fact, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			out = append(out, quantity{Value: v, Unit: normalizeUnit(m[2])})
		}
	}
	return out
}

// normalizeUnit folds unit spellings together: "Months" and "month" are the
// same attribute, "percent" and "%" likewise.
func normalizeUnit(u string) string {
	u = strings.ToLower(u)
	if u == "percent" {
		u = "%"
	}
	return strings.TrimSuffix(u, "s")
}

// checkConflictingFacts flags entities that are lexically about the same
// subject (same trimmed, lowercased name) but assert different numeric values
// for the same unit. One issue per (subject, unit) conflict, listing every
// involved entity id.
func checkConflictingFacts(snap *model.Snapshot, _ *model.Policy) []model.Issue {
	type group struct {
		displayName string
		entityIDs   []string
		byUnit      map[string]map[float64][]string // unit → value → entity ids
	}
	groups := make(map[string]*group)
	var order []string

	for _, e := range snap.Entities {
		subject := strings.ToLower(strings.TrimSpace(e.Name))
		g, ok := groups[subject]
		if !ok {
			g = &group{displayName: e.Name, byUnit: make(map[string]map[float64][]string)}
			groups[subject] = g
			order = append(order, subject)
		}
		g.entityIDs = append(g.entityIDs, e.ID)
		for _, q := range extractQuantities(e.Facts) {
			if g.byUnit[q.Unit] == nil {
				g.byUnit[q.Unit] = make(map[float64][]string)
			}
			g.byUnit[q.Unit][q.Value] = append(g.byUnit[q.Unit][q.Value], e.ID)
		}
	}

	var issues []model.Issue
	for _, subject := range order {
		g := groups[subject]
		units := make([]string, 0, len(g.byUnit))
		for unit := range g.byUnit {
			units = append(units, unit)
		}
		sort.Strings(units)

		for _, unit := range units {
			values := g.byUnit[unit]
			if len(values) < 2 {
				continue
			}
			var ids []string
			sorted := make([]float64, 0, len(values))
			for v := range values {
				sorted = append(sorted, v)
			}
			sort.Float64s(sorted)
			formatted := make([]string, len(sorted))
			for i, v := range sorted {
				formatted[i] = strconv.FormatFloat(v, 'f', -1, 64)
				ids = append(ids, values[v]...)
			}
			ids = uniqueStrings(ids)

			issues = append(issues, model.Issue{
				Code:     model.CodeConflictingFacts,
				Severity: severityFor[model.CodeConflictingFacts],
				Message: fmt.Sprintf("Conflicting %s values for %q: %s.",
					unitLabel(unit), g.displayName, strings.Join(formatted, ", ")),
				EntityIDs: ids,
				Details: map[string]any{
					"subject": g.displayName,
					"unit":    unit,
					"values":  formatted,
				},
				SuggestedAction: "Keep one authoritative value and archive the rest.",
			})
		}
	}
	return issues
}

// unitLabel renders a normalized unit for messages.
func unitLabel(unit string) string {
	if unit == "%" {
		return "percentage"
	}
	return unit
}
