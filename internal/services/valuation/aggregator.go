// Package valuation produces point-in-time portfolio valuations with sleeve
// roll-ups and band compliance
package valuation

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/bands"
	"github.com/bobmcallan/folio/internal/services/rules"
)

// Input is everything a valuation reads. Sleeves, assignments and rules must
// already be scoped to the portfolio.
type Input struct {
	Portfolio   models.Portfolio
	Assets      []models.Asset
	Holdings    []models.Holding // open positions only
	Prices      models.PriceCache
	Sleeves     []models.Sleeve
	Assignments []models.SleeveAssignment
	Rules       []models.Rule
	CashEur     float64

	// DefaultBands is used when the portfolio never stored band settings
	DefaultBands models.BandConfig
	StaleAfter   time.Duration
	Now          time.Time
}

// Valuate values every open holding, rolls values up the sleeve forest and
// evaluates bands and concentration rules.
func Valuate(in Input) *models.PortfolioValuation {
	bandCfg := in.Portfolio.Bands(in.DefaultBands)
	staleAfter := in.StaleAfter
	if staleAfter <= 0 {
		staleAfter = common.FreshnessPriceCache
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &models.PortfolioValuation{
		PortfolioID:              in.Portfolio.ID,
		PortfolioName:            in.Portfolio.Name,
		CashEur:                  in.CashEur,
		BandConfig:               bandCfg,
		Sleeves:                  []models.SleeveAllocation{},
		Assets:                   []models.AssetValuation{},
		UnassignedAssets:         []models.AssetValuation{},
		MissingSymbolAssets:      []models.MissingSymbolAsset{},
		StalePriceAssets:         []models.StalePriceAsset{},
		ConcentrationViolations:  []models.ConcentrationViolation{},
		StalePriceThresholdHours: int(staleAfter / time.Hour),
		HasAllPrices:             true,
	}

	assets := make(map[string]models.Asset, len(in.Assets))
	for _, a := range in.Assets {
		assets[a.ID] = a
	}

	// Sleeve membership, restricted to this portfolio's non-cash sleeves.
	// Assets assigned to a cash sleeve count as unassigned.
	sleeveIDs := make(map[string]bool, len(in.Sleeves))
	for _, s := range in.Sleeves {
		if s.IsCash {
			continue
		}
		sleeveIDs[s.ID] = true
	}
	sleeveOf := make(map[string]string, len(in.Assignments))
	for _, asg := range in.Assignments {
		if sleeveIDs[asg.SleeveID] {
			sleeveOf[asg.AssetID] = asg.SleeveID
		}
	}

	// Step 1: per-asset values
	var values, unassigned, costs []float64
	for _, h := range in.Holdings {
		asset, ok := assets[h.AssetID]
		if !ok || asset.Archived || h.Quantity <= 0 {
			continue
		}

		av := valueHolding(asset, h, in.Prices)
		if av.UsingCostBasis {
			result.HasAllPrices = false
		}

		if asset.Symbol == "" {
			result.MissingSymbolAssets = append(result.MissingSymbolAssets, models.MissingSymbolAsset{
				AssetID: asset.ID, Ticker: asset.Ticker, Name: asset.Name,
			})
		}
		if entry, ok := in.Prices[asset.PriceKey()]; ok && !common.IsFresh(entry.FetchedAt, now, staleAfter) {
			result.StalePriceAssets = append(result.StalePriceAssets, models.StalePriceAsset{
				AssetID:       asset.ID,
				Ticker:        asset.Ticker,
				Name:          asset.Name,
				LastFetchedAt: entry.FetchedAt,
				HoursStale:    common.HoursStale(entry.FetchedAt, now),
			})
		}

		values = append(values, av.ValueEur)
		costs = append(costs, av.CostBasisEur)
		if _, assigned := sleeveOf[asset.ID]; !assigned {
			unassigned = append(unassigned, av.ValueEur)
		}
		result.Assets = append(result.Assets, av)
	}

	// Step 2: totals
	result.TotalHoldingsValueEur = floats.Sum(values)
	result.UnassignedValueEur = floats.Sum(unassigned)
	result.InvestedValueEur = result.TotalHoldingsValueEur - result.UnassignedValueEur
	result.AssignedHoldingsValueEur = result.InvestedValueEur
	result.TotalValueEur = result.TotalHoldingsValueEur + in.CashEur
	result.TotalCostBasisEur = floats.Sum(costs)

	// Step 3: share of invested value
	var assigned []models.AssetValuation
	direct := make(map[string]float64)
	directAssets := make(map[string][]models.AssetValuation)
	for i := range result.Assets {
		av := &result.Assets[i]
		av.PercentOfInvested = percentOf(av.ValueEur, result.InvestedValueEur)

		sleeveID, ok := sleeveOf[av.AssetID]
		if !ok {
			result.UnassignedAssets = append(result.UnassignedAssets, *av)
			continue
		}
		assigned = append(assigned, *av)
		direct[sleeveID] += av.ValueEur
		directAssets[sleeveID] = append(directAssets[sleeveID], *av)
	}

	// Steps 4-6: roll-up, dual bases, bands
	forest := BuildForest(in.Sleeves)
	totals := forest.SubtreeTotals(direct)
	for _, s := range sortSleeves(in.Sleeves) {
		if s.IsCash {
			continue
		}

		total := totals[s.ID]
		alloc := models.SleeveAllocation{
			SleeveID:              s.ID,
			SleeveName:            s.Name,
			ParentID:              s.ParentID,
			BudgetPercent:         s.BudgetPercent,
			DirectAssets:          directAssets[s.ID],
			DirectValueEur:        direct[s.ID],
			TotalValueEur:         total,
			ActualPercentInvested: percentOf(total, result.InvestedValueEur),
			ActualPercentTotal:    percentOf(total, result.TotalValueEur),
		}
		if alloc.DirectAssets == nil {
			alloc.DirectAssets = []models.AssetValuation{}
		}
		alloc.Band, alloc.Status = bands.EvaluateAllocation(alloc.ActualPercentInvested, s.BudgetPercent, bandCfg)
		alloc.DeltaPercent = alloc.ActualPercentInvested - s.BudgetPercent

		if alloc.Status == models.AllocationStatusWarning {
			result.ViolationCount++
		}
		result.Sleeves = append(result.Sleeves, alloc)
	}

	// Rules run over assigned assets only
	if v := rules.EvaluateConcentration(in.Rules, assigned); len(v) > 0 {
		result.ConcentrationViolations = v
	}
	result.ConcentrationViolationCount = len(result.ConcentrationViolations)
	result.TotalViolationCount = result.ViolationCount + result.ConcentrationViolationCount

	if last := in.Prices.LastFetched(); !last.IsZero() {
		result.LastSyncAt = &last
	}

	return result
}

// valueHolding prices a holding from the cache, falling back to cost basis
func valueHolding(asset models.Asset, h models.Holding, prices models.PriceCache) models.AssetValuation {
	av := models.AssetValuation{
		AssetID:         asset.ID,
		Ticker:          asset.Ticker,
		Name:            asset.Name,
		Type:            asset.Type,
		Currency:        asset.Currency,
		Quantity:        h.Quantity,
		CostBasisEur:    h.CostBasisEur,
		CostBasisNative: h.CostBasisNative,
	}

	if h.CostBasisNative > 0 {
		rate := h.CostBasisEur / h.CostBasisNative
		av.ImpliedHistoricalFXRate = &rate
	}

	entry, ok := prices[asset.PriceKey()]
	if !ok {
		av.ValueEur = h.CostBasisEur
		av.UsingCostBasis = true
		return av
	}

	priceEur := entry.PriceEur
	priceNative := entry.PriceNative
	av.PriceEur = &priceEur
	av.PriceNative = &priceNative
	av.ValueEur = priceEur * h.Quantity
	return av
}

func percentOf(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return value / base * 100
}
