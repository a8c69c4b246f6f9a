package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// SnapshotStore persists the workspace the engine computes over
type SnapshotStore interface {
	// LoadWorkspace reads the full workspace snapshot
	LoadWorkspace(ctx context.Context) (*models.PortfolioData, error)

	// SaveWorkspace replaces the workspace snapshot
	SaveWorkspace(ctx context.Context, data *models.PortfolioData) error

	// ImportOrders merges orders into the ledger, replacing rows with a matching reference.
	// Returns the resulting ledger size.
	ImportOrders(ctx context.Context, orders []models.Order) (int, error)

	// SaveSyncReport records the outcome of a price sync
	SaveSyncReport(ctx context.Context, report *models.SyncReport) error
}
