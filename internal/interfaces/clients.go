package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceFetcher retrieves prices from a market-data provider
type PriceFetcher interface {
	// FetchQuote returns the latest price for a market-data symbol
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// FetchHistory returns daily bars for symbol between from and to (inclusive)
	FetchHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)

	// FetchFXRate returns units of quote currency per unit of base currency
	FetchFXRate(ctx context.Context, base, quote string) (float64, error)
}
