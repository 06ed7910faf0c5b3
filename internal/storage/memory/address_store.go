package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// AddressStore keeps resolved addresses and the commune catalogue in memory
// for development/testing.
type AddressStore struct {
	mu       sync.RWMutex
	byKey    map[postal.AddressKey]postal.Address
	order    []postal.AddressKey
	communes map[string]postal.Commune
}

// NewAddressStore constructs an empty AddressStore.
func NewAddressStore() *AddressStore {
	return &AddressStore{
		byKey:    make(map[postal.AddressKey]postal.Address),
		communes: make(map[string]postal.Commune),
	}
}

// FindAddress returns the address stored under key.
func (s *AddressStore) FindAddress(_ context.Context, key postal.AddressKey) (postal.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.byKey[key]
	if !ok {
		return postal.Address{}, postal.ErrNotFound
	}
	return addr, nil
}

// SaveAddress inserts addr unless its key is already stored, in which case the
// stored row wins.
func (s *AddressStore) SaveAddress(_ context.Context, addr postal.Address) (postal.Address, error) {
	if addr.ID == "" {
		return postal.Address{}, fmt.Errorf("address id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.Key()
	if existing, ok := s.byKey[key]; ok {
		return existing, nil
	}
	s.byKey[key] = addr
	s.order = append(s.order, key)
	return addr, nil
}

// ListByCode returns addresses with the given postal code in insertion order.
func (s *AddressStore) ListByCode(_ context.Context, code string) ([]postal.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []postal.Address
	for _, key := range s.order {
		if addr := s.byKey[key]; addr.PostalCode == code {
			out = append(out, addr)
		}
	}
	return out, nil
}

// ListAddresses returns a window of addresses ordered by postal code, then
// insertion, plus the total count.
func (s *AddressStore) ListAddresses(_ context.Context, limit, offset int) ([]postal.Address, int, error) {
	s.mu.RLock()
	all := make([]postal.Address, 0, len(s.order))
	for _, key := range s.order {
		all = append(all, s.byKey[key])
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].PostalCode < all[j].PostalCode })
	total := len(all)
	if offset >= total {
		return []postal.Address{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}
