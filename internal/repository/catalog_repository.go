package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

// ErrProductNotFound is returned when a product id is not in the catalog.
var ErrProductNotFound = errors.New("product not found")

// CatalogRepository reads products and their sales history. It never writes.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetSalesHistory returns daily sales since the given time, oldest first.
	GetSalesHistory(ctx context.Context, productID string, since time.Time) ([]domain.SalesRecord, error)
	// ListProductIDs returns product ids, optionally filtered by category.
	// A non-positive limit means no limit.
	ListProductIDs(ctx context.Context, category string, limit int) ([]string, error)
}
