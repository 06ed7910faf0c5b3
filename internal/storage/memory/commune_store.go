package memory

import (
	"context"
	"fmt"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// FindCommune returns the catalogue entry stored under the normalized key.
func (s *AddressStore) FindCommune(_ context.Context, key string) (postal.Commune, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communes[key]
	if !ok {
		return postal.Commune{}, postal.ErrNotFound
	}
	return c, nil
}

// SaveCommunes adds communes whose key is not yet stored. Existing entries are
// left as they are.
func (s *AddressStore) SaveCommunes(_ context.Context, communes []postal.Commune) error {
	for _, c := range communes {
		if c.Key == "" {
			return fmt.Errorf("commune %q has no key", c.Name)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range communes {
		if _, ok := s.communes[c.Key]; !ok {
			s.communes[c.Key] = c
		}
	}
	return nil
}
