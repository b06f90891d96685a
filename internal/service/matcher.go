package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

// travelSlackMinutes is added to a subscriber's travel limit before the
// cutoff is applied.
const travelSlackMinutes = 10

// DistanceLookup resolves the travel distance between two address lines.
type DistanceLookup interface {
	GetOrCreate(ctx context.Context, start, end string) (domain.Distance, error)
}

// Matcher computes the exams a subscriber should be told about.
type Matcher struct {
	exams     repo.ExamRepo
	distances DistanceLookup
	metrics   *metrics.Metrics
}

// NewMatcher constructs a Matcher.
func NewMatcher(exams repo.ExamRepo, distances DistanceLookup, m *metrics.Metrics) *Matcher {
	return &Matcher{exams: exams, distances: distances, metrics: m}
}

// Match returns the open exams starting after now that satisfy the
// subscriber's district and equipment preferences, in store order. When the
// subscriber has a travel limit and a home address, exams whose travel
// duration is not below limit+10 minutes are dropped and the rest carry
// their travel figures. A full open exam is still a candidate.
func (m *Matcher) Match(ctx context.Context, sub domain.Subscriber, now time.Time) ([]domain.Match, error) {
	exams, err := m.exams.List(ctx, domain.ExamFilter{
		Status:                domain.StatusOpen,
		StartAfter:            now,
		Districts:             sub.Districts,
		RequireDisabledAccess: sub.NeedDisabledAccess,
		RequireHeadphones:     sub.NeedHeadphones,
	})
	if err != nil {
		return nil, fmt.Errorf("service.Matcher.Match: %w", err)
	}

	home := sub.AddressLine()
	if sub.MaxTravelMinutes == nil || home == "" {
		matches := make([]domain.Match, 0, len(exams))
		for _, e := range exams {
			matches = append(matches, domain.Match{Exam: e, AddressLine: e.AddressLine()})
		}
		m.metrics.MatchesFound.Add(float64(len(matches)))
		return matches, nil
	}

	cutoffSeconds := (*sub.MaxTravelMinutes + travelSlackMinutes) * 60
	matches := make([]domain.Match, 0, len(exams))
	for _, e := range exams {
		line := e.AddressLine()
		d, err := m.distances.GetOrCreate(ctx, home, line)
		if err != nil {
			return nil, fmt.Errorf("service.Matcher.Match: exam %s: %w", e.ExamID, err)
		}
		if d.Seconds >= cutoffSeconds {
			continue
		}
		seconds, meters := d.Seconds, d.Meters
		matches = append(matches, domain.Match{
			Exam:             e,
			AddressLine:      line,
			StartAddressLine: home,
			TravelSeconds:    &seconds,
			TravelMeters:     &meters,
		})
	}
	m.metrics.MatchesFound.Add(float64(len(matches)))
	return matches, nil
}
