package postgres

import (
	"testing"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildListProductIDsQuery(t *testing.T) {
	tests := []struct {
		name     string
		category string
		limit    int
		query    string
		args     []interface{}
	}{
		{
			name:  "all products",
			query: "SELECT id FROM products WHERE 1=1 ORDER BY id",
		},
		{
			name:     "category and limit",
			category: " Apparel ",
			limit:    50,
			query:    "SELECT id FROM products WHERE 1=1 AND LOWER(category) = LOWER($1) ORDER BY id LIMIT $2",
			args:     []interface{}{"Apparel", 50},
		},
		{
			name:  "limit only",
			limit: 10,
			query: "SELECT id FROM products WHERE 1=1 ORDER BY id LIMIT $1",
			args:  []interface{}{10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListProductIDsQuery(tt.category, tt.limit)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestProductRowToDomain(t *testing.T) {
	row := productRow{ID: "p1", Name: "Mug", CurrentStock: 3, ReorderPoint: 5, MaxStock: 20}
	row.Category.String, row.Category.Valid = "Kitchen", true

	p := row.toDomain()
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Kitchen", p.Category)
	assert.Empty(t, p.SKU)
	assert.Equal(t, 5, p.Inventory.ReorderPoint)
	assert.Equal(t, 20, p.Inventory.MaxStock)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/shop", DSN(&config.DatabaseConfig{URL: "postgres://u:p@db:5432/shop", Host: "ignored"}))
	assert.Equal(t,
		"host=localhost port=5432 user=app password=secret dbname=shop sslmode=disable",
		DSN(&config.DatabaseConfig{Host: "localhost", Port: "5432", User: "app", Password: "secret", DBName: "shop"}),
	)
}
