package domain

// Match is an exam that qualifies for a subscriber's notification.
// Travel fields are only set when the subscriber has a travel limit and a
// resolvable home address.
type Match struct {
	Exam             Exam
	AddressLine      string
	StartAddressLine string // empty when no travel filter applied
	TravelSeconds    *int
	TravelMeters     *int
}

// HasTravel reports whether distance information is attached.
func (m Match) HasTravel() bool {
	return m.TravelSeconds != nil && m.TravelMeters != nil
}
