// Package postal defines core types shared across subsystems.
package postal

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no record matches the lookup.
var ErrNotFound = errors.New("not found")

// Address is a resolved address-to-postal-code mapping. Commune and Street hold
// normalized values; Number is the trimmed street number as typed. Region is
// the upper-cased label of the commune's region.
type Address struct {
	ID         string    `json:"id"`
	Commune    string    `json:"commune"`
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	Region     string    `json:"region"`
	PostalCode string    `json:"postalCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Commune is a catalogue entry. Key is the normalized name used for lookups.
type Commune struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// AddressKey identifies an address independently of its postal code.
type AddressKey struct {
	Commune string
	Street  string
	Number  string
}

// Key returns the lookup key of the address.
func (a Address) Key() AddressKey {
	return AddressKey{Commune: a.Commune, Street: a.Street, Number: a.Number}
}

// String renders the key as "COMMUNE|STREET|NUMBER".
func (k AddressKey) String() string {
	return k.Commune + "|" + k.Street + "|" + k.Number
}

// ResolvedEvent is published whenever a postal code is obtained from the
// upstream site and persisted.
type ResolvedEvent struct {
	AddressID  string    `json:"address_id"`
	Commune    string    `json:"commune"`
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	Region     string    `json:"region"`
	PostalCode string    `json:"postal_code"`
	ResolvedAt time.Time `json:"resolved_at"`
}
