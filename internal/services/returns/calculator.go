package returns

import (
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/holdings"
	"github.com/bobmcallan/folio/internal/services/prices"
)

// Calculator computes historical returns over a ledger snapshot
type Calculator struct {
	book     *prices.Book
	timeline *holdings.Timeline
	flows    []CashFlow
	byAsset  map[string][]CashFlow
}

// NewCalculator replays orders once and indexes cash flows. Orders should
// already exclude archived assets.
func NewCalculator(book *prices.Book, orders []models.Order) *Calculator {
	c := &Calculator{
		book:     book,
		timeline: holdings.Replay(orders),
		byAsset:  make(map[string][]CashFlow),
	}

	for _, o := range holdings.SortOrders(orders) {
		if !o.IsCashFlow() {
			continue
		}
		f := CashFlow{Date: common.Day(o.Date), Amount: FlowAmount(o)}
		c.flows = append(c.flows, f)
		c.byAsset[o.AssetID] = append(c.byAsset[o.AssetID], f)
	}
	return c
}

// FlowAmount signs an order as a cash flow: buys in, sells out
func FlowAmount(o models.Order) float64 {
	if o.Quantity > 0 {
		return o.AmountEur
	}
	if o.AmountEur < 0 {
		return o.AmountEur
	}
	return -o.AmountEur
}

// ValueAt values the end-of-day positions on date. Today uses the price cache.
func (c *Calculator) ValueAt(date, today time.Time) float64 {
	source := prices.FromHistory
	if !common.Day(date).Before(common.Day(today)) {
		source = prices.FromCache
	}
	return c.book.Value(c.timeline.AsOf(date).Positions, date, source)
}

// Historical computes returns for every window with a meaningful start value.
// Windows starting before the first order, or valued at zero, are omitted.
func (c *Calculator) Historical(now time.Time) *models.HistoricalReturns {
	result := &models.HistoricalReturns{
		Returns:      make(map[models.ReturnPeriod]models.PeriodReturn),
		AssetReturns: make(map[models.ReturnPeriod]map[string]models.AssetPeriodReturn),
	}

	firstOrder, ok := c.timeline.FirstDate()
	if !ok {
		return result
	}

	today := common.Day(now)
	current := c.timeline.AsOf(today)
	currentValue := c.ValueAt(today, today)
	totalCost := current.CostBasisEur()
	result.CurrentValue = currentValue

	for _, period := range models.ReturnPeriods {
		comparison := ComparisonDate(period, today, firstOrder)
		if comparison.Before(firstOrder) {
			continue
		}

		startValue := c.ValueAt(comparison, today)
		if startValue <= 0 {
			continue
		}

		mwr := CalculateMWR(comparison, today, startValue, currentValue, c.flows)
		twr, _ := CalculateTWR(comparison, today, c.flows, func(d time.Time) float64 {
			return c.ValueAt(d, today)
		})

		pr := models.PeriodReturn{
			Period:                period,
			ComparisonDate:        common.FormatDate(comparison),
			CurrentValue:          currentValue,
			StartValue:            startValue,
			AnnualizedReturnPct:   pct(mwr.Annualized),
			TimeWeightedReturnPct: pct(twr),
			PeriodYears:           roundCents(mwr.PeriodYears),
			NetCashFlow:           roundCents(mwr.NetCashFlow),
			CashFlowCount:         mwr.CashFlowCount,
		}

		switch {
		case period == models.PeriodAll:
			pr.AbsoluteReturn = roundCents(currentValue - totalCost)
			if totalCost > 0 {
				pr.CompoundedReturnPct = pct((currentValue - totalCost) / totalCost)
			}
		case mwr.PeriodYears >= 1:
			pr.AbsoluteReturn = roundCents(currentValue - startValue - mwr.NetCashFlow)
			pr.CompoundedReturnPct = pct(mwr.Annualized)
		default:
			pr.AbsoluteReturn = roundCents(currentValue - startValue - mwr.NetCashFlow)
			pr.CompoundedReturnPct = pct(mwr.Compounded)
		}

		result.Returns[period] = pr
		result.AssetReturns[period] = c.assetReturns(period, comparison, today, current)
	}

	return result
}

// assetReturns repeats the money-weighted calculation for each open holding.
// An asset first bought after the comparison date is measured from its first
// purchase instead.
func (c *Calculator) assetReturns(period models.ReturnPeriod, comparison, today time.Time, current holdings.Snapshot) map[string]models.AssetPeriodReturn {
	out := make(map[string]models.AssetPeriodReturn)

	for _, pos := range current.Open() {
		asset, ok := c.book.Asset(pos.AssetID)
		if !ok {
			continue
		}

		start := comparison
		firstBuy, bought := c.timeline.FirstBuyDate(pos.AssetID)
		short := bought && firstBuy.After(comparison)
		if short {
			start = firstBuy
		}

		ar := models.AssetPeriodReturn{
			AssetID:            asset.ID,
			Ticker:             asset.Ticker,
			IsShortHolding:     short,
			EffectiveStartDate: common.FormatDate(start),
		}

		if hp, ok := c.book.Historical(asset.ID, start); ok {
			ar.HistoricalPrice = ptr(hp)
		}

		price, priced := c.book.Current(asset.ID)
		if !priced {
			out[asset.ID] = ar
			continue
		}
		ar.CurrentPrice = ptr(price)
		endValue := price * pos.Quantity
		ar.CurrentValue = ptr(roundCents(endValue))

		if period == models.PeriodAll {
			ar.AbsoluteReturn = ptr(roundCents(endValue - pos.CostBasisEur))
		}

		if ar.HistoricalPrice == nil {
			out[asset.ID] = ar
			continue
		}

		startValue := *ar.HistoricalPrice * c.timeline.AsOf(start).Position(asset.ID).Quantity
		ar.StartValue = ptr(roundCents(startValue))

		mwr := CalculateMWR(start, today, startValue, endValue, c.byAsset[asset.ID])
		ar.CashFlowCount = mwr.CashFlowCount
		ar.PeriodYears = ptr(roundCents(mwr.PeriodYears))
		ar.AnnualizedReturnPct = ptr(pct(mwr.Annualized))

		if period == models.PeriodAll {
			if pos.CostBasisEur > 0 {
				ar.CompoundedReturnPct = ptr(pct((endValue - pos.CostBasisEur) / pos.CostBasisEur))
			}
		} else {
			ar.AbsoluteReturn = ptr(roundCents(endValue - startValue - mwr.NetCashFlow))
			ar.CompoundedReturnPct = ptr(pct(mwr.Compounded))
		}

		if short {
			ar.HoldingPeriodLabel = HoldingPeriodLabel(mwr.PeriodYears)
		}

		out[asset.ID] = ar
	}

	return out
}

func ptr(v float64) *float64 {
	return &v
}
