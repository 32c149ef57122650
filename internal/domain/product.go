package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidProduct = errors.New("invalid product")

// Validate checks the fields a prediction cannot do without. Stock levels are
// taken as given.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	return nil
}
