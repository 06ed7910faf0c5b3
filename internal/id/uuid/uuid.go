// Package uuid generates address record IDs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

var _ postal.IDGenerator = Generator{}

// Generator creates time-ordered UUID v7 strings, so address and diagnostic
// IDs sort by creation time.
type Generator struct{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
