// Package portfolio wires valuation, returns and charting over a workspace snapshot
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/bands"
	"github.com/bobmcallan/folio/internal/services/chart"
	"github.com/bobmcallan/folio/internal/services/holdings"
	"github.com/bobmcallan/folio/internal/services/prices"
	"github.com/bobmcallan/folio/internal/services/returns"
	"github.com/bobmcallan/folio/internal/services/rules"
	"github.com/bobmcallan/folio/internal/services/valuation"
)

// ErrPortfolioNotFound is returned when the requested portfolio ID is not in the workspace
var ErrPortfolioNotFound = errors.New("portfolio not found")

// Service implements PortfolioService
type Service struct {
	config *common.Config
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service
func NewService(logger *common.Logger, config *common.Config) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if config == nil {
		config = common.NewDefaultConfig()
	}
	return &Service{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// GetPortfolioValuation values current holdings against the portfolio's sleeves and rules
func (s *Service) GetPortfolioValuation(ctx context.Context, data *models.PortfolioData, portfolioID string) (*models.PortfolioValuation, error) {
	start := time.Now()
	p, err := s.portfolio(data, portfolioID)
	if err != nil {
		return nil, err
	}

	sleeves := scopeSleeves(data.Sleeves, p.ID)
	if err := valuation.ValidateForest(sleeves); err != nil {
		s.logger.Warn().Str("portfolio", p.ID).Err(err).Msg("Sleeve tree is inconsistent")
	}
	for _, m := range valuation.BudgetMismatches(sleeves) {
		s.logger.Debug().
			Str("portfolio", p.ID).
			Str("parent", m.ParentID).
			Float64("expected", m.Expected).
			Float64("actual", m.Actual).
			Msg("Sleeve budgets do not sum to parent")
	}

	val := valuation.Valuate(valuation.Input{
		Portfolio:    p,
		Assets:       data.Assets,
		Holdings:     holdings.DeriveHoldings(data.ActiveOrders()),
		Prices:       data.Prices,
		Sleeves:      sleeves,
		Assignments:  scopeAssignments(data.Assignments, sleeves),
		Rules:        scopeRules(data.Rules, p.ID),
		CashEur:      data.CashEur,
		DefaultBands: s.config.Valuation.DefaultBands,
		StaleAfter:   s.config.Valuation.StaleAfter(),
		Now:          s.now(),
	})

	for _, alloc := range val.Sleeves {
		if alloc.Status != models.AllocationStatusWarning {
			continue
		}
		s.logger.Warn().
			Str("portfolio", p.ID).
			Str("sleeve", alloc.SleeveName).
			Float64("actual_pct", alloc.ActualPercentInvested).
			Str("band", bands.FormatBand(alloc.Band)).
			Msg("Sleeve outside its band")
	}
	for _, v := range val.ConcentrationViolations {
		s.logger.Warn().Str("portfolio", p.ID).Str("rule", v.RuleID).Msg(rules.Describe(v))
	}

	s.logger.Info().
		Str("portfolio", p.ID).
		Int("assets", len(val.Assets)).
		Float64("total_eur", val.TotalValueEur).
		Int("violations", val.TotalViolationCount).
		Bool("all_prices", val.HasAllPrices).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio valuation complete")

	return val, nil
}

// GetHistoricalReturns computes money-weighted returns for every window
func (s *Service) GetHistoricalReturns(ctx context.Context, data *models.PortfolioData, portfolioID string) (*models.HistoricalReturns, error) {
	start := time.Now()
	p, err := s.portfolio(data, portfolioID)
	if err != nil {
		return nil, err
	}

	calc := returns.NewCalculator(s.book(data), data.ActiveOrders())
	hist := calc.Historical(s.now())

	s.logger.Info().
		Str("portfolio", p.ID).
		Int("periods", len(hist.Returns)).
		Float64("current_eur", hist.CurrentValue).
		Dur("elapsed", time.Since(start)).
		Msg("Historical returns complete")

	return hist, nil
}

// GetChartData builds the value time series for a range
func (s *Service) GetChartData(ctx context.Context, data *models.PortfolioData, portfolioID, rangeKey string) (*models.ChartData, error) {
	p, err := s.portfolio(data, portfolioID)
	if err != nil {
		return nil, err
	}
	if rangeKey == "" {
		rangeKey = s.config.Chart.DefaultRange
	}
	r, err := chart.ParseRange(rangeKey)
	if err != nil {
		return nil, err
	}

	series := chart.Series(s.book(data), data.ActiveOrders(), r, s.now())
	s.logger.Debug().
		Str("portfolio", p.ID).
		Str("range", string(r)).
		Int("points", len(series.DataPoints)).
		Msg("Chart series built")
	return series, nil
}

// RenderChart renders the value time series as PNG bytes
func (s *Service) RenderChart(ctx context.Context, data *models.PortfolioData, portfolioID, rangeKey string) ([]byte, error) {
	series, err := s.GetChartData(ctx, data, portfolioID, rangeKey)
	if err != nil {
		return nil, err
	}
	p, _ := data.Portfolio(portfolioID)

	png, err := chart.Render(series.DataPoints, chart.RenderOptions{
		Width:    s.config.Chart.Width,
		Height:   s.config.Chart.Height,
		Title:    fmt.Sprintf("%s (%s)", displayName(p), series.Range),
		Currency: currencySymbol(s.config.ReportingCurrency),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render chart for %s: %w", portfolioID, err)
	}
	return png, nil
}

func (s *Service) portfolio(data *models.PortfolioData, id string) (models.Portfolio, error) {
	if data == nil {
		return models.Portfolio{}, fmt.Errorf("%w: %q (no workspace)", ErrPortfolioNotFound, id)
	}
	p, ok := data.Portfolio(id)
	if !ok {
		return models.Portfolio{}, fmt.Errorf("%w: %q", ErrPortfolioNotFound, id)
	}
	return p, nil
}

func (s *Service) book(data *models.PortfolioData) *prices.Book {
	return prices.NewBook(data.Assets, data.Prices, data.History, data.FXRates, prices.Options{
		ReportingCurrency: s.config.ReportingCurrency,
		LookbackDays:      s.config.Returns.LookbackDays,
	})
}

func scopeSleeves(sleeves []models.Sleeve, portfolioID string) []models.Sleeve {
	var out []models.Sleeve
	for _, sl := range sleeves {
		if sl.PortfolioID == portfolioID {
			out = append(out, sl)
		}
	}
	return out
}

// scopeAssignments keeps assignments that point at one of the given sleeves
func scopeAssignments(assignments []models.SleeveAssignment, sleeves []models.Sleeve) []models.SleeveAssignment {
	ids := make(map[string]bool, len(sleeves))
	for _, sl := range sleeves {
		ids[sl.ID] = true
	}
	var out []models.SleeveAssignment
	for _, a := range assignments {
		if ids[a.SleeveID] {
			out = append(out, a)
		}
	}
	return out
}

func scopeRules(rules []models.Rule, portfolioID string) []models.Rule {
	var out []models.Rule
	for _, r := range rules {
		if r.PortfolioID == portfolioID {
			out = append(out, r)
		}
	}
	return out
}

func displayName(p models.Portfolio) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func currencySymbol(code string) string {
	switch code {
	case "EUR":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	}
	return code + " "
}
