package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

// ReadProduct loads a single product from a JSON file.
func ReadProduct(path string) (domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to read product file %s: %w", path, err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
