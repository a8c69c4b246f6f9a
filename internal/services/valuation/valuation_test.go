package valuation

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func bandsPtr(c models.BandConfig) *models.BandConfig { return &c }

func sleeve(id, parent string, budget float64, order int) models.Sleeve {
	s := models.Sleeve{ID: id, PortfolioID: "p1", Name: "Sleeve " + id, BudgetPercent: budget, SortOrder: order}
	if parent != "" {
		s.ParentID = strPtr(parent)
	}
	return s
}

func quote(symbol string, eur float64, fetched time.Time) models.PriceCacheEntry {
	return models.PriceCacheEntry{Symbol: symbol, PriceNative: eur, PriceEur: eur, Currency: "EUR", FetchedAt: fetched}
}

// fixture: equities (60) -> {us (40), eu (20)}, bonds (40); one unassigned asset
func fixture() Input {
	return Input{
		Portfolio: models.Portfolio{ID: "p1", Name: "Core", BandConfig: bandsPtr(models.DefaultBandConfig())},
		Assets: []models.Asset{
			{ID: "US1", Ticker: "VTI", Symbol: "VTI.US", Name: "Total Market", Type: models.AssetTypeETF},
			{ID: "EU1", Ticker: "VEUR", Symbol: "VEUR.AS", Name: "Europe", Type: models.AssetTypeETF},
			{ID: "BD1", Ticker: "AGG", Symbol: "AGG.US", Name: "Bonds", Type: models.AssetTypeBond},
			{ID: "XX1", Ticker: "XX", Name: "Unassigned Co", Type: models.AssetTypeStock},
		},
		Holdings: []models.Holding{
			{AssetID: "BD1", Quantity: 10, CostBasisEur: 900, CostBasisNative: 1000},
			{AssetID: "EU1", Quantity: 20, CostBasisEur: 400, CostBasisNative: 400},
			{AssetID: "US1", Quantity: 10, CostBasisEur: 800, CostBasisNative: 900},
			{AssetID: "XX1", Quantity: 5, CostBasisEur: 250, CostBasisNative: 250},
		},
		Prices: models.PriceCache{
			"VTI.US":  quote("VTI.US", 100, testNow.Add(-time.Hour)),
			"VEUR.AS": quote("VEUR.AS", 25, testNow.Add(-time.Hour)),
			"AGG.US":  quote("AGG.US", 80, testNow.Add(-30*time.Hour)),
		},
		Sleeves: []models.Sleeve{
			sleeve("bonds", "", 40, 2),
			sleeve("equities", "", 60, 1),
			sleeve("us", "equities", 40, 1),
			sleeve("eu", "equities", 20, 2),
		},
		Assignments: []models.SleeveAssignment{
			{SleeveID: "us", AssetID: "US1"},
			{SleeveID: "eu", AssetID: "EU1"},
			{SleeveID: "bonds", AssetID: "BD1"},
		},
		CashEur: 700,
		Now:     testNow,
	}
}

func allocation(t *testing.T, v *models.PortfolioValuation, id string) models.SleeveAllocation {
	t.Helper()
	for _, s := range v.Sleeves {
		if s.SleeveID == id {
			return s
		}
	}
	t.Fatalf("sleeve %s not in valuation", id)
	return models.SleeveAllocation{}
}

func TestValuate_Totals(t *testing.T) {
	v := Valuate(fixture())

	// US 1000 + EU 500 + BD 800 + XX 250 (cost basis)
	assert.InDelta(t, 2550.0, v.TotalHoldingsValueEur, 1e-9)
	assert.InDelta(t, 250.0, v.UnassignedValueEur, 1e-9)
	assert.InDelta(t, 2300.0, v.InvestedValueEur, 1e-9)
	assert.InDelta(t, 3250.0, v.TotalValueEur, 1e-9)
	assert.InDelta(t, 2350.0, v.TotalCostBasisEur, 1e-9)
	assert.False(t, v.HasAllPrices)

	require.Len(t, v.UnassignedAssets, 1)
	assert.Equal(t, "XX1", v.UnassignedAssets[0].AssetID)
	assert.True(t, v.UnassignedAssets[0].UsingCostBasis)
	assert.Nil(t, v.UnassignedAssets[0].PriceEur)
}

func TestValuate_SleeveRollUp(t *testing.T) {
	v := Valuate(fixture())
	require.Len(t, v.Sleeves, 4)

	// SortOrder, then input order
	var ids []string
	for _, s := range v.Sleeves {
		ids = append(ids, s.SleeveID)
	}
	assert.Equal(t, []string{"equities", "us", "bonds", "eu"}, ids)

	eq := allocation(t, v, "equities")
	assert.Zero(t, eq.DirectValueEur)
	assert.InDelta(t, 1500.0, eq.TotalValueEur, 1e-9)
	assert.InDelta(t, 1500.0/2300*100, eq.ActualPercentInvested, 1e-9)
	assert.InDelta(t, 1500.0/3250*100, eq.ActualPercentTotal, 1e-9)
	assert.InDelta(t, eq.ActualPercentInvested-60, eq.DeltaPercent, 1e-9)
	assert.Equal(t, models.AllocationStatusOK, eq.Status)

	us := allocation(t, v, "us")
	assert.InDelta(t, 1000.0, us.DirectValueEur, 1e-9)
	require.Len(t, us.DirectAssets, 1)
	// 43.48% of invested against 40 ± 8
	assert.Equal(t, models.AllocationStatusOK, us.Status)

	eu := allocation(t, v, "eu")
	// 21.74% against 20 ± 4
	assert.Equal(t, models.AllocationStatusOK, eu.Status)

	bonds := allocation(t, v, "bonds")
	// 34.78% against 40 ± 8
	assert.Equal(t, models.AllocationStatusOK, bonds.Status)
	assert.Zero(t, v.ViolationCount)
}

func TestValuate_BandWarning(t *testing.T) {
	in := fixture()
	in.Prices["VTI.US"] = quote("VTI.US", 300, testNow)

	v := Valuate(in)
	us := allocation(t, v, "us")
	assert.Equal(t, models.AllocationStatusWarning, us.Status)
	assert.Greater(t, v.ViolationCount, 0)
	assert.Equal(t, v.ViolationCount+v.ConcentrationViolationCount, v.TotalViolationCount)
}

func TestValuate_PercentOfInvestedSumsTo100(t *testing.T) {
	v := Valuate(fixture())

	var sum float64
	for _, a := range v.Assets {
		if a.AssetID != "XX1" {
			sum += a.PercentOfInvested
		}
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestValuate_ZeroInvestedIsNotNaN(t *testing.T) {
	in := fixture()
	in.Assignments = nil

	v := Valuate(in)
	assert.Zero(t, v.InvestedValueEur)
	for _, a := range v.Assets {
		assert.Zero(t, a.PercentOfInvested)
	}
	for _, s := range v.Sleeves {
		assert.Zero(t, s.ActualPercentInvested)
		assert.Zero(t, s.ActualPercentTotal)
	}
}

func TestValuate_EmptyPortfolio(t *testing.T) {
	v := Valuate(Input{Portfolio: models.Portfolio{ID: "p1"}, DefaultBands: models.DefaultBandConfig(), Now: testNow})
	assert.Zero(t, v.TotalValueEur)
	assert.True(t, v.HasAllPrices)
	assert.Nil(t, v.LastSyncAt)
	assert.NotNil(t, v.Sleeves)
	assert.Equal(t, models.DefaultBandConfig(), v.BandConfig)
}

func TestValuate_PriceKeyFallsBackToTicker(t *testing.T) {
	in := fixture()
	in.Prices["XX"] = quote("XX", 60, testNow)

	v := Valuate(in)
	require.Len(t, v.UnassignedAssets, 1)
	xx := v.UnassignedAssets[0]
	assert.False(t, xx.UsingCostBasis)
	assert.InDelta(t, 300.0, xx.ValueEur, 1e-9)
	assert.True(t, v.HasAllPrices)
}

func TestValuate_HealthReport(t *testing.T) {
	v := Valuate(fixture())

	require.Len(t, v.MissingSymbolAssets, 1)
	assert.Equal(t, "XX1", v.MissingSymbolAssets[0].AssetID)

	require.Len(t, v.StalePriceAssets, 1)
	assert.Equal(t, "BD1", v.StalePriceAssets[0].AssetID)
	assert.Equal(t, 30, v.StalePriceAssets[0].HoursStale)
	assert.Equal(t, 24, v.StalePriceThresholdHours)

	require.NotNil(t, v.LastSyncAt)
	assert.Equal(t, testNow.Add(-time.Hour), *v.LastSyncAt)
}

func TestValuate_ImpliedFXRate(t *testing.T) {
	v := Valuate(fixture())
	for _, a := range v.Assets {
		if a.AssetID == "US1" {
			require.NotNil(t, a.ImpliedHistoricalFXRate)
			assert.InDelta(t, 800.0/900, *a.ImpliedHistoricalFXRate, 1e-9)
		}
	}
}

func TestValuate_SkipsArchivedAndCashSleeves(t *testing.T) {
	in := fixture()
	in.Assets[3].Archived = true
	cash := sleeve("cash", "", 0, 0)
	cash.IsCash = true
	in.Sleeves = append(in.Sleeves, cash)

	v := Valuate(in)
	assert.Empty(t, v.UnassignedAssets)
	assert.InDelta(t, 2300.0, v.TotalHoldingsValueEur, 1e-9)
	for _, s := range v.Sleeves {
		assert.NotEqual(t, "cash", s.SleeveID)
	}
}

func TestValuate_CashSleeveAssignmentCountsAsUnassigned(t *testing.T) {
	in := fixture()
	cash := sleeve("cash", "", 0, 0)
	cash.IsCash = true
	in.Sleeves = append(in.Sleeves, cash)
	in.Assignments = append(in.Assignments, models.SleeveAssignment{SleeveID: "cash", AssetID: "XX1"})

	v := Valuate(in)
	require.Len(t, v.UnassignedAssets, 1)
	assert.Equal(t, "XX1", v.UnassignedAssets[0].AssetID)
	assert.InDelta(t, 250.0, v.UnassignedValueEur, 1e-9)
	assert.InDelta(t, 2300.0, v.InvestedValueEur, 1e-9)

	var rootSum float64
	for _, s := range v.Sleeves {
		assert.NotEqual(t, "cash", s.SleeveID)
		if s.ParentID == nil {
			rootSum += s.ActualPercentInvested
		}
	}
	assert.InDelta(t, 100.0, rootSum, 1e-9)
}

func TestValuate_ExplicitZeroBandsAreKept(t *testing.T) {
	in := fixture()
	in.Portfolio.BandConfig = &models.BandConfig{}
	in.DefaultBands = models.DefaultBandConfig()

	v := Valuate(in)
	assert.True(t, v.BandConfig.IsZero())
	us := allocation(t, v, "us")
	assert.Zero(t, us.Band.HalfWidth)
	assert.InDelta(t, 40.0, us.Band.Lower, 1e-9)
	assert.InDelta(t, 40.0, us.Band.Upper, 1e-9)
	// 43.48% sits outside a zero-width band
	assert.Equal(t, models.AllocationStatusWarning, us.Status)
}

func TestValuate_MissingBandsUseDefaults(t *testing.T) {
	in := fixture()
	in.Portfolio.BandConfig = nil
	in.DefaultBands = models.BandConfig{RelativeTolerance: 10, AbsoluteFloor: 1, AbsoluteCap: 5}

	v := Valuate(in)
	assert.Equal(t, in.DefaultBands, v.BandConfig)
	assert.InDelta(t, 4.0, allocation(t, v, "us").Band.HalfWidth, 1e-9)
}

func TestValuate_ConcentrationRules(t *testing.T) {
	in := fixture()
	in.Rules = []models.Rule{{
		ID: "r1", Name: "cap", Type: models.RuleTypeConcentrationLimit, Enabled: true,
		Concentration: models.ConcentrationLimitConfig{MaxPercent: 40},
	}}

	v := Valuate(in)
	// US1 is 43.5% of invested; the unassigned asset is never checked
	require.Len(t, v.ConcentrationViolations, 1)
	assert.Equal(t, "US1", v.ConcentrationViolations[0].AssetID)
	assert.Equal(t, 1, v.ConcentrationViolationCount)
	assert.Equal(t, 1, v.TotalViolationCount)
}

func TestValuate_RandomForestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(15) + 1
		var sleeves []models.Sleeve
		parent := map[string]string{}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("s%d", i)
			p := ""
			if i > 0 && rng.Intn(4) != 0 {
				p = fmt.Sprintf("s%d", rng.Intn(i))
			}
			parent[id] = p
			sleeves = append(sleeves, sleeve(id, p, 10, rng.Intn(5)))
		}

		in := Input{Portfolio: models.Portfolio{ID: "p1"}, Sleeves: sleeves, Prices: models.PriceCache{}, Now: testNow}
		direct := map[string]float64{}
		for i := 0; i < 30; i++ {
			id := fmt.Sprintf("a%d", i)
			sid := fmt.Sprintf("s%d", rng.Intn(n))
			value := float64(rng.Intn(1000) + 1)
			in.Assets = append(in.Assets, models.Asset{ID: id, Ticker: id})
			in.Holdings = append(in.Holdings, models.Holding{AssetID: id, Quantity: 1, CostBasisEur: value})
			in.Assignments = append(in.Assignments, models.SleeveAssignment{SleeveID: sid, AssetID: id})
			direct[sid] += value
		}

		v := Valuate(in)
		for _, alloc := range v.Sleeves {
			// brute force: sum every sleeve whose ancestor chain passes through this one
			var want float64
			for id, val := range direct {
				for cur := id; cur != ""; cur = parent[cur] {
					if cur == alloc.SleeveID {
						want += val
						break
					}
				}
			}
			assert.InDelta(t, want, alloc.TotalValueEur, 1e-6, "trial %d sleeve %s", trial, alloc.SleeveID)
		}
	}
}

func TestSubtreeTotals_CycleTerminates(t *testing.T) {
	sleeves := []models.Sleeve{
		sleeve("a", "b", 50, 0),
		sleeve("b", "a", 50, 0),
	}
	totals := BuildForest(sleeves).SubtreeTotals(map[string]float64{"a": 10, "b": 5})
	assert.InDelta(t, 15.0, totals["a"], 1e-9)
	assert.InDelta(t, 15.0, totals["b"], 1e-9)
}

func TestValidateForest(t *testing.T) {
	ok := []models.Sleeve{sleeve("a", "", 100, 0), sleeve("b", "a", 100, 0)}
	assert.NoError(t, ValidateForest(ok))

	cyclic := []models.Sleeve{sleeve("a", "c", 0, 0), sleeve("b", "a", 0, 0), sleeve("c", "b", 0, 0)}
	err := ValidateForest(cyclic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSleeveCycle))

	orphan := []models.Sleeve{sleeve("a", "missing", 0, 0)}
	err = ValidateForest(orphan)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSleeveCycle))
}

func TestBudgetMismatches(t *testing.T) {
	sleeves := fixture().Sleeves
	assert.Empty(t, BudgetMismatches(sleeves))

	sleeves[3].BudgetPercent = 25 // eu: children of equities now sum to 65
	got := BudgetMismatches(sleeves)
	require.Len(t, got, 1)
	assert.Equal(t, "equities", got[0].ParentID)
	assert.InDelta(t, 60.0, got[0].Expected, 1e-9)
	assert.InDelta(t, 65.0, got[0].Actual, 1e-9)

	cash := sleeve("cash", "", 30, 9)
	cash.IsCash = true
	assert.Len(t, BudgetMismatches(append(fixture().Sleeves, cash)), 0)
}
