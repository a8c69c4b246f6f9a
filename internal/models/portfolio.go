// Package models defines data structures for Folio
package models

import (
	"time"
)

// AssetType classifies an asset for rule filtering
type AssetType string

const (
	AssetTypeStock     AssetType = "stock"
	AssetTypeETF       AssetType = "etf"
	AssetTypeBond      AssetType = "bond"
	AssetTypeFund      AssetType = "fund"
	AssetTypeCommodity AssetType = "commodity"
	AssetTypeOther     AssetType = "other"
)

// Asset describes an instrument that appears in the ledger.
// ID is the ledger key (an ISIN for broker imports). Ticker is the broker
// ticker; Symbol is the market-data symbol used for price lookups.
type Asset struct {
	ID       string    `json:"id"`
	Ticker   string    `json:"ticker"`
	Symbol   string    `json:"symbol,omitempty"`
	Name     string    `json:"name"`
	Type     AssetType `json:"type"`
	Currency string    `json:"currency"`
	Archived bool      `json:"archived,omitempty"`
}

// PriceKey returns the key used against the price cache and price history:
// the market-data symbol when set, otherwise the broker ticker.
func (a Asset) PriceKey() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.Ticker
}

// OrderKind classifies a ledger entry by the sign of its quantity
type OrderKind string

const (
	OrderKindBuy  OrderKind = "buy"
	OrderKindSell OrderKind = "sell"
	OrderKindFee  OrderKind = "fee"
)

// Order is an immutable ledger entry.
// Quantity is signed: positive buys, negative sells, zero for a pure fee.
// Amounts are always positive; AmountEur is in the reporting currency.
type Order struct {
	ID           string    `json:"id,omitempty"`
	AssetID      string    `json:"asset_id"`
	Date         time.Time `json:"date"`
	Quantity     float64   `json:"quantity"`
	AmountNative float64   `json:"amount_native"`
	AmountEur    float64   `json:"amount_eur"`
	Currency     string    `json:"currency"`
	Reference    string    `json:"reference,omitempty"` // broker reference, deduplication key
}

// Kind returns the order classification
func (o Order) Kind() OrderKind {
	switch {
	case o.Quantity > 0:
		return OrderKindBuy
	case o.Quantity < 0:
		return OrderKindSell
	default:
		return OrderKindFee
	}
}

// IsCashFlow reports whether the order moves capital in or out of a position.
// Fees change cost basis only and are not external flows.
func (o Order) IsCashFlow() bool {
	return o.Quantity != 0
}

// Position is the derived state of one asset at a point in time.
// AvgCostEur only changes on buys and on fees against a non-empty position.
type Position struct {
	AssetID         string  `json:"asset_id"`
	Quantity        float64 `json:"quantity"`
	CostBasisEur    float64 `json:"cost_basis_eur"`
	CostBasisNative float64 `json:"cost_basis_native"`
	AvgCostEur      float64 `json:"avg_cost_eur"`
	AvgCostNative   float64 `json:"avg_cost_native"`
}

// IsOpen reports whether any quantity is held
func (p Position) IsOpen() bool {
	return p.Quantity > 0
}

// Holding is a current net position (quantity > 0) derived from the ledger
type Holding struct {
	AssetID         string  `json:"asset_id"`
	Quantity        float64 `json:"quantity"`
	CostBasisEur    float64 `json:"cost_basis_eur"`
	CostBasisNative float64 `json:"cost_basis_native"`
	AvgCostEur      float64 `json:"avg_cost_eur"`
}

// Portfolio scopes sleeves, assignments, rules and band settings.
// A nil BandConfig means the portfolio never stored one.
type Portfolio struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	BandConfig *BandConfig `json:"band_config,omitempty"`
}

// Bands returns the stored band settings, or fallback when none were stored.
// A stored zero config is returned as is.
func (p Portfolio) Bands(fallback BandConfig) BandConfig {
	if p.BandConfig == nil {
		return fallback
	}
	return *p.BandConfig
}

// PortfolioData is the read-only snapshot the engine computes over.
// The ledger, assets, prices and cash are global; sleeves, assignments and
// rules are filtered by portfolio ID.
type PortfolioData struct {
	Portfolios  []Portfolio        `json:"portfolios"`
	Assets      []Asset            `json:"assets"`
	Orders      []Order            `json:"orders"`
	Prices      PriceCache         `json:"prices"`
	History     PriceHistory       `json:"history"`
	FXRates     map[string]float64 `json:"fx_rates,omitempty"` // pair -> rate, e.g. "USDEUR"
	Sleeves     []Sleeve           `json:"sleeves"`
	Assignments []SleeveAssignment `json:"assignments"`
	Rules       []Rule             `json:"rules"`
	CashEur     float64            `json:"cash_eur"`
}

// Portfolio returns the portfolio with the given ID
func (d *PortfolioData) Portfolio(id string) (Portfolio, bool) {
	for _, p := range d.Portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return Portfolio{}, false
}

// AssetMap indexes assets by ID
func (d *PortfolioData) AssetMap() map[string]Asset {
	m := make(map[string]Asset, len(d.Assets))
	for _, a := range d.Assets {
		m[a.ID] = a
	}
	return m
}

// ActiveOrders returns orders whose asset is known and not archived
func (d *PortfolioData) ActiveOrders() []Order {
	assets := d.AssetMap()
	out := make([]Order, 0, len(d.Orders))
	for _, o := range d.Orders {
		if a, ok := assets[o.AssetID]; ok && !a.Archived {
			out = append(out, o)
		}
	}
	return out
}
