// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// PortfolioService computes valuations, returns and charts over a workspace snapshot.
// Every call recomputes from the snapshot it is given.
type PortfolioService interface {
	// GetPortfolioValuation values current holdings against the portfolio's sleeves and rules
	GetPortfolioValuation(ctx context.Context, data *models.PortfolioData, portfolioID string) (*models.PortfolioValuation, error)

	// GetHistoricalReturns computes money-weighted returns for every window
	GetHistoricalReturns(ctx context.Context, data *models.PortfolioData, portfolioID string) (*models.HistoricalReturns, error)

	// GetChartData builds the value time series for a range ("1m", "3m", "6m", "1y", "all")
	GetChartData(ctx context.Context, data *models.PortfolioData, portfolioID, rangeKey string) (*models.ChartData, error)

	// RenderChart renders the value time series as PNG bytes
	RenderChart(ctx context.Context, data *models.PortfolioData, portfolioID, rangeKey string) ([]byte, error)
}
