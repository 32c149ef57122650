package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository"
)

// Expected tables:
//
//	products(id text primary key, sku text, name text, category text,
//	         description text, current_stock int, reorder_point int, max_stock int)
//	sales(product_id text references products(id), sold_at timestamptz, quantity int)

type productRow struct {
	ID           string         `db:"id"`
	SKU          sql.NullString `db:"sku"`
	Name         string         `db:"name"`
	Category     sql.NullString `db:"category"`
	Description  sql.NullString `db:"description"`
	CurrentStock int            `db:"current_stock"`
	ReorderPoint int            `db:"reorder_point"`
	MaxStock     int            `db:"max_stock"`
}

func (r productRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		SKU:         r.SKU.String,
		Name:        r.Name,
		Category:    r.Category.String,
		Description: r.Description.String,
		Inventory: domain.InventoryState{
			CurrentStock: r.CurrentStock,
			ReorderPoint: r.ReorderPoint,
			MaxStock:     r.MaxStock,
		},
	}
}

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT id, sku, name, category, description,
		       current_stock, reorder_point, max_stock
		FROM products
		WHERE id = $1
	`

	var row productRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repository.ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("error getting product %s: %w", id, err)
	}

	return row.toDomain(), nil
}

// GetSalesHistory aggregates sales per day so that each record is one day.
func (r *catalogRepository) GetSalesHistory(ctx context.Context, productID string, since time.Time) ([]domain.SalesRecord, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT date_trunc('day', sold_at) AS sold_at,
		       SUM(quantity)::int AS quantity
		FROM sales
		WHERE product_id = $1 AND sold_at >= $2
		GROUP BY 1
		ORDER BY 1 ASC
	`

	var records []domain.SalesRecord
	if err := r.db.SelectContext(ctx, &records, query, productID, since); err != nil {
		return nil, fmt.Errorf("error getting sales history for %s: %w", productID, err)
	}

	return records, nil
}

func (r *catalogRepository) ListProductIDs(ctx context.Context, category string, limit int) ([]string, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query, args := buildListProductIDsQuery(category, limit)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	return ids, nil
}

func buildListProductIDsQuery(category string, limit int) (string, []interface{}) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString("SELECT id FROM products WHERE 1=1")

	if c := strings.TrimSpace(category); c != "" {
		args = append(args, c)
		fmt.Fprintf(&b, " AND LOWER(category) = LOWER($%d)", len(args))
	}

	b.WriteString(" ORDER BY id")

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}
