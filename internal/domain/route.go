package domain

// RouteLeg is one leg of a routing provider answer.
type RouteLeg struct {
	Meters  int
	Seconds int
}

// Route is the full answer of a routing provider for one address pair.
// Raw holds the provider response verbatim.
type Route struct {
	Legs []RouteLeg
	Raw  string
}

// ShortestLeg returns the leg with the smallest distance. The first of equal
// legs wins. ok is false when there are no legs.
func (r Route) ShortestLeg() (leg RouteLeg, ok bool) {
	for i, l := range r.Legs {
		if i == 0 || l.Meters < leg.Meters {
			leg = l
		}
	}
	return leg, len(r.Legs) > 0
}
