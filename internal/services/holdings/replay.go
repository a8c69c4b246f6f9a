package holdings

import (
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// Snapshot is the end-of-day state of every asset on one ledger date.
// Positions must not be modified; each snapshot owns its map.
type Snapshot struct {
	Date      time.Time
	Positions map[string]models.Position
}

// Position returns the asset's position, or the empty position
func (s Snapshot) Position(assetID string) models.Position {
	if p, ok := s.Positions[assetID]; ok {
		return p
	}
	return models.Position{AssetID: assetID}
}

// Open returns positions with quantity > 0
func (s Snapshot) Open() []models.Position {
	open := make([]models.Position, 0, len(s.Positions))
	for _, p := range s.Positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].AssetID < open[j].AssetID })
	return open
}

// CostBasisEur sums the cost basis of open positions
func (s Snapshot) CostBasisEur() float64 {
	var total float64
	for _, p := range s.Positions {
		if p.IsOpen() {
			total += p.CostBasisEur
		}
	}
	return total
}

// Timeline holds one snapshot per distinct order date, ascending
type Timeline struct {
	snapshots []Snapshot
	firstBuy  map[string]time.Time
}

// Replay folds the ledger and records the state at the end of every order date
func Replay(orders []models.Order) *Timeline {
	tl := &Timeline{firstBuy: make(map[string]time.Time)}
	current := make(map[string]models.Position)

	sorted := SortOrders(orders)
	for i, o := range sorted {
		current[o.AssetID] = Apply(current[o.AssetID], o)

		if o.Kind() == models.OrderKindBuy {
			if _, seen := tl.firstBuy[o.AssetID]; !seen {
				tl.firstBuy[o.AssetID] = common.Day(o.Date)
			}
		}

		day := common.Day(o.Date)
		if i+1 < len(sorted) && common.Day(sorted[i+1].Date).Equal(day) {
			continue
		}

		positions := make(map[string]models.Position, len(current))
		for k, v := range current {
			positions[k] = v
		}
		tl.snapshots = append(tl.snapshots, Snapshot{Date: day, Positions: positions})
	}

	return tl
}

// AsOf returns the latest snapshot dated on or before date.
// Before the first order it returns an empty snapshot.
func (t *Timeline) AsOf(date time.Time) Snapshot {
	target := common.Day(date)

	// first snapshot strictly after target
	idx := sort.Search(len(t.snapshots), func(i int) bool {
		return t.snapshots[i].Date.After(target)
	})
	if idx == 0 {
		return Snapshot{Date: target, Positions: map[string]models.Position{}}
	}
	return t.snapshots[idx-1]
}

// Dates returns every snapshot date, ascending
func (t *Timeline) Dates() []time.Time {
	dates := make([]time.Time, len(t.snapshots))
	for i, s := range t.snapshots {
		dates[i] = s.Date
	}
	return dates
}

// Latest returns the final snapshot, or an empty one for an empty ledger
func (t *Timeline) Latest() Snapshot {
	if len(t.snapshots) == 0 {
		return Snapshot{Positions: map[string]models.Position{}}
	}
	return t.snapshots[len(t.snapshots)-1]
}

// FirstDate returns the date of the earliest order
func (t *Timeline) FirstDate() (time.Time, bool) {
	if len(t.snapshots) == 0 {
		return time.Time{}, false
	}
	return t.snapshots[0].Date, true
}

// FirstBuyDate returns the date the asset was first bought
func (t *Timeline) FirstBuyDate(assetID string) (time.Time, bool) {
	d, ok := t.firstBuy[assetID]
	return d, ok
}

// Len returns the number of snapshots
func (t *Timeline) Len() int {
	return len(t.snapshots)
}
