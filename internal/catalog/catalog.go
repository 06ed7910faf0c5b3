// Package catalog holds the Chilean regions and communes that lookups are
// checked against.
package catalog

import (
	"context"
	"fmt"

	"github.com/JakeFAU/cl-postal-codes/internal/normalize"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// Region is one of the sixteen administrative regions.
type Region struct {
	Number      int
	Name        string
	Label       string
	RomanNumber string
	Communes    []string
}

// Regions returns the catalogue ordered by region number.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// Communes flattens the catalogue into store entries keyed by normalized name.
// Region holds the region label.
func Communes() []postal.Commune {
	var out []postal.Commune
	for _, r := range regions {
		for _, name := range r.Communes {
			out = append(out, postal.Commune{
				Key:    normalize.Text(name),
				Name:   name,
				Region: r.Label,
			})
		}
	}
	return out
}

// Seed writes the catalogue to store and returns the number of communes sent.
func Seed(ctx context.Context, store postal.CommuneStore) (int, error) {
	communes := Communes()
	if err := store.SaveCommunes(ctx, communes); err != nil {
		return 0, fmt.Errorf("seed communes: %w", err)
	}
	return len(communes), nil
}
