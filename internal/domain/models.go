package domain

import "time"

// InventoryState holds the stock levels of a product.
type InventoryState struct {
	CurrentStock int `json:"current_stock" db:"current_stock"`
	ReorderPoint int `json:"reorder_point" db:"reorder_point"`
	MaxStock     int `json:"max_stock" db:"max_stock"`
}

// Product represents a catalog item with its inventory levels
type Product struct {
	ID          string         `json:"id" db:"id"`
	SKU         string         `json:"sku,omitempty" db:"sku"`
	Name        string         `json:"name" db:"name"`
	Category    string         `json:"category" db:"category"`
	Description string         `json:"description" db:"description"`
	Inventory   InventoryState `json:"inventory"`
}

// SalesRecord is a quantity sold at a point in time. Histories are ordered
// oldest first by the caller.
type SalesRecord struct {
	Date     time.Time `json:"date" db:"sold_at"`
	Quantity int       `json:"quantity" db:"quantity"`
}

// TrendResult describes short-window sales movement.
type TrendResult struct {
	Direction TrendDirection `json:"direction"`
	Impact    float64        `json:"impact"`
}

// SeasonalityResult describes how the current month compares to the average month.
type SeasonalityResult struct {
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// MarketFactor is a qualitative demand driver reported by the language model.
type MarketFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// PredictionFactor explains one contribution to a prediction.
type PredictionFactor struct {
	Factor      string  `json:"factor"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// InventoryPrediction is the demand forecast for a single product.
type InventoryPrediction struct {
	ProductID                string             `json:"product_id"`
	PredictedDemand          int                `json:"predicted_demand"`
	Confidence               float64            `json:"confidence"`
	Timeframe                string             `json:"timeframe"`
	SuggestedReorderQuantity int                `json:"suggested_reorder_quantity"`
	Factors                  []PredictionFactor `json:"factors"`
}

// StockOutlook projects current stock against the predicted demand rate.
type StockOutlook struct {
	DailyDemand       float64  `json:"daily_demand"`
	DaysUntilStockout *float64 `json:"days_until_stockout"`
	ShouldReorder     bool     `json:"should_reorder"`
}

// PredictionReport is what the API and CLI return for one product.
type PredictionReport struct {
	Prediction  InventoryPrediction `json:"prediction"`
	Outlook     *StockOutlook       `json:"outlook,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// CatalogSnapshot bundles a product with its ordered sales history.
type CatalogSnapshot struct {
	Product Product       `json:"product"`
	History []SalesRecord `json:"history"`
}

// BatchItem is the outcome for one product in a batch run.
type BatchItem struct {
	ProductID string            `json:"product_id"`
	Report    *PredictionReport `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// BatchResult summarises a batch prediction run
type BatchResult struct {
	RunID       string      `json:"run_id"`
	Timeframe   string      `json:"timeframe"`
	Items       []BatchItem `json:"items"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}
