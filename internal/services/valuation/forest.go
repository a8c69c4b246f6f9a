package valuation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bobmcallan/folio/internal/models"
)

// ErrSleeveCycle is returned when a sleeve is its own ancestor
var ErrSleeveCycle = errors.New("sleeve hierarchy contains a cycle")

// budgetTolerance is the slack allowed when sibling budgets are summed
const budgetTolerance = 0.01

// Forest indexes non-cash sleeves by parent
type Forest struct {
	byID     map[string]models.Sleeve
	children map[string][]string // parent ID ("" for roots) -> child IDs
}

// BuildForest indexes sleeves, dropping cash sleeves. Children are ordered
// by SortOrder.
func BuildForest(sleeves []models.Sleeve) *Forest {
	f := &Forest{
		byID:     make(map[string]models.Sleeve, len(sleeves)),
		children: make(map[string][]string),
	}

	ordered := sortSleeves(sleeves)
	for _, s := range ordered {
		if s.IsCash {
			continue
		}
		f.byID[s.ID] = s
		f.children[s.ParentKey()] = append(f.children[s.ParentKey()], s.ID)
	}
	return f
}

// SubtreeTotals returns, for every sleeve, its direct value plus the totals of
// all non-cash descendants. A sleeve reached again along its own ancestor path
// contributes 0, so malformed hierarchies still terminate.
func (f *Forest) SubtreeTotals(direct map[string]float64) map[string]float64 {
	totals := make(map[string]float64, len(f.byID))
	for id := range f.byID {
		totals[id] = f.subtreeTotal(id, direct, map[string]bool{})
	}
	return totals
}

func (f *Forest) subtreeTotal(id string, direct map[string]float64, path map[string]bool) float64 {
	if path[id] {
		return 0
	}
	path[id] = true
	defer delete(path, id)

	total := direct[id]
	for _, child := range f.children[id] {
		total += f.subtreeTotal(child, direct, path)
	}
	return total
}

// ValidateForest checks that every parent exists in the set and that no
// sleeve is its own ancestor. Intended for the edit boundary; valuation
// tolerates both.
func ValidateForest(sleeves []models.Sleeve) error {
	parents := make(map[string]string, len(sleeves))
	for _, s := range sleeves {
		parents[s.ID] = s.ParentKey()
	}

	for _, s := range sleeves {
		p := s.ParentKey()
		if p == "" {
			continue
		}
		if _, ok := parents[p]; !ok {
			return fmt.Errorf("sleeve %s (%s) references unknown parent %s", s.ID, s.Name, p)
		}
	}

	for _, s := range sleeves {
		seen := map[string]bool{s.ID: true}
		for cur := parents[s.ID]; cur != ""; cur = parents[cur] {
			if seen[cur] {
				return fmt.Errorf("sleeve %s (%s): %w", s.ID, s.Name, ErrSleeveCycle)
			}
			seen[cur] = true
		}
	}
	return nil
}

// BudgetMismatch reports siblings whose budgets do not add up to their parent
type BudgetMismatch struct {
	ParentID  string   `json:"parent_id"` // "" for roots
	Expected  float64  `json:"expected"`
	Actual    float64  `json:"actual"`
	SleeveIDs []string `json:"sleeve_ids"`
}

// BudgetMismatches checks that the non-cash children of every sleeve sum to
// its budget, and that the roots sum to 100. Leaves are not checked.
func BudgetMismatches(sleeves []models.Sleeve) []BudgetMismatch {
	f := BuildForest(sleeves)

	parents := make([]string, 0, len(f.children))
	for p := range f.children {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	var out []BudgetMismatch
	for _, p := range parents {
		expected := 100.0
		if p != "" {
			parent, ok := f.byID[p]
			if !ok {
				continue
			}
			expected = parent.BudgetPercent
		}

		var sum float64
		ids := f.children[p]
		for _, id := range ids {
			sum += f.byID[id].BudgetPercent
		}

		if math.Abs(sum-expected) > budgetTolerance {
			out = append(out, BudgetMismatch{ParentID: p, Expected: expected, Actual: sum, SleeveIDs: ids})
		}
	}
	return out
}

func sortSleeves(sleeves []models.Sleeve) []models.Sleeve {
	ordered := make([]models.Sleeve, len(sleeves))
	copy(ordered, sleeves)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})
	return ordered
}
