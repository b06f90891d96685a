package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Distance is a cached routing result for a directed pair of address lines.
// Once Meters and Seconds are set they are never recomputed.
type Distance struct {
	ID           uuid.UUID
	StartAddress string
	EndAddress   string
	Meters       int
	Seconds      int
	Details      string // raw provider response, kept for audit
}

// RouteKey identifies a directed pair of address lines.
type RouteKey struct {
	Start string
	End   string
}

// NewRouteKey normalizes both address lines by trimming and collapsing
// whitespace, so cosmetic differences do not cause extra provider calls.
func NewRouteKey(start, end string) RouteKey {
	return RouteKey{Start: normalizeAddress(start), End: normalizeAddress(end)}
}

func normalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
