package forecast

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

func marketFactorPrompt(p domain.Product) string {
	var b strings.Builder
	b.WriteString("Analyze market factors that could affect demand for this product:\n\n")
	fmt.Fprintf(&b, "Product: %s\n", p.Name)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Description: %s\n\n", p.Description)
	b.WriteString("Consider current market trends, seasonality, economic factors, and competition.\n")
	b.WriteString(`Return only a JSON array of objects with the keys "name", "impact" (a number from -1 to 1) and "description".`)
	return b.String()
}

func demandPrompt(in DemandInput) string {
	factors, err := json.Marshal(in.MarketFactors)
	if err != nil || len(in.MarketFactors) == 0 {
		factors = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following data, predict the demand for this product over the next %s:\n\n", in.Timeframe)
	fmt.Fprintf(&b, "Product: %s\n", in.Product.Name)
	fmt.Fprintf(&b, "Current Stock: %d\n", in.Product.Inventory.CurrentStock)
	fmt.Fprintf(&b, "Reorder Point: %d\n\n", in.Product.Inventory.ReorderPoint)
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Sales Trend: %s (impact: %.4g)\n", in.Trend.Direction, in.Trend.Impact)
	fmt.Fprintf(&b, "- Seasonality Impact: %.4g\n", in.Seasonality.Impact)
	fmt.Fprintf(&b, "- Market Factors: %s\n\n", factors)
	b.WriteString("Return only a number representing the predicted demand quantity.")
	return b.String()
}

// stripCodeFence removes a surrounding Markdown code block, which chat models
// often add around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
