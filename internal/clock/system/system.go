// Package system provides the wall clock.
package system

import (
	"time"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

var _ postal.Clock = Clock{}

// Clock implements postal.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
