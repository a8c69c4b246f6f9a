// Package holdings derives positions from the order ledger using average cost
package holdings

import (
	"math"
	"sort"

	"github.com/bobmcallan/folio/internal/models"
)

// Apply folds a single order into a position.
//
// Buys add quantity and cost. Sells reduce cost by the pre-sale average cost
// times the units sold, leaving the average unchanged. Fees add cost without
// changing quantity. Quantity and cost basis never go below zero.
func Apply(pos models.Position, o models.Order) models.Position {
	pos.AssetID = o.AssetID

	switch o.Kind() {
	case models.OrderKindBuy:
		pos.Quantity += o.Quantity
		pos.CostBasisEur += o.AmountEur
		pos.CostBasisNative += o.AmountNative
		pos.AvgCostEur, pos.AvgCostNative = averages(pos)

	case models.OrderKindSell:
		sold := math.Abs(o.Quantity)
		if pos.Quantity > 0 {
			avgEur, avgNative := averages(pos)
			pos.CostBasisEur = math.Max(0, pos.CostBasisEur-avgEur*sold)
			pos.CostBasisNative = math.Max(0, pos.CostBasisNative-avgNative*sold)
			pos.Quantity = math.Max(0, pos.Quantity-sold)
		}

	case models.OrderKindFee:
		pos.CostBasisEur += o.AmountEur
		pos.CostBasisNative += o.AmountNative
		if pos.Quantity > 0 {
			pos.AvgCostEur, pos.AvgCostNative = averages(pos)
		}
	}

	return pos
}

func averages(pos models.Position) (eur, native float64) {
	if pos.Quantity <= 0 {
		return 0, 0
	}
	return pos.CostBasisEur / pos.Quantity, pos.CostBasisNative / pos.Quantity
}

// SortOrders returns a copy of orders sorted ascending by date. Orders with
// identical timestamps keep their ledger order.
func SortOrders(orders []models.Order) []models.Order {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Derive folds the ledger into the final position of every asset it mentions,
// including closed ones.
func Derive(orders []models.Order) map[string]models.Position {
	positions := make(map[string]models.Position)
	for _, o := range SortOrders(orders) {
		positions[o.AssetID] = Apply(positions[o.AssetID], o)
	}
	return positions
}

// DeriveHoldings returns open positions (quantity > 0) ordered by asset ID
func DeriveHoldings(orders []models.Order) []models.Holding {
	positions := Derive(orders)

	holdings := make([]models.Holding, 0, len(positions))
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		holdings = append(holdings, models.Holding{
			AssetID:         p.AssetID,
			Quantity:        p.Quantity,
			CostBasisEur:    p.CostBasisEur,
			CostBasisNative: p.CostBasisNative,
			AvgCostEur:      p.AvgCostEur,
		})
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].AssetID < holdings[j].AssetID
	})
	return holdings
}

// MergeOrders appends incoming orders to the ledger. An incoming order whose
// Reference matches an existing one replaces it in place; orders without a
// reference are always appended.
func MergeOrders(existing, incoming []models.Order) []models.Order {
	merged := make([]models.Order, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	byRef := make(map[string]int, len(merged))
	for i, o := range merged {
		if o.Reference != "" {
			byRef[o.Reference] = i
		}
	}

	for _, o := range incoming {
		if o.Reference == "" {
			merged = append(merged, o)
			continue
		}
		if idx, ok := byRef[o.Reference]; ok {
			if o.ID == "" {
				o.ID = merged[idx].ID
			}
			merged[idx] = o
			continue
		}
		byRef[o.Reference] = len(merged)
		merged = append(merged, o)
	}

	return merged
}
