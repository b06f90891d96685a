package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
	"github.com/fishing-exam-alert/backend/internal/service"
)

// ---- in-memory repos -------------------------------------------------------
//
// These behave like the Postgres repos closely enough for business logic
// tests: natural-key upserts with full overwrite, store ordering, ErrNotFound.

type memSubscriberRepo struct {
	byEmail map[string]domain.Subscriber
	upserts int
	failOn  string // email whose upsert fails
}

func newMemSubscriberRepo() *memSubscriberRepo {
	return &memSubscriberRepo{byEmail: make(map[string]domain.Subscriber)}
}

func (m *memSubscriberRepo) Upsert(_ context.Context, s domain.Subscriber) (domain.Subscriber, error) {
	if s.Email == m.failOn {
		return domain.Subscriber{}, errDB
	}
	m.upserts++
	now := time.Now()
	if cur, ok := m.byEmail[s.Email]; ok {
		s.ID = cur.ID
		s.CreatedAt = cur.CreatedAt
	} else {
		s.ID = uuid.New()
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.byEmail[s.Email] = s
	return s, nil
}

func (m *memSubscriberRepo) GetByEmail(_ context.Context, email string) (domain.Subscriber, error) {
	s, ok := m.byEmail[email]
	if !ok {
		return domain.Subscriber{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSubscriberRepo) List(_ context.Context) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	for _, s := range m.byEmail {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memSubscriberRepo) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	all, _ := m.List(ctx)
	var out []domain.Subscriber
	for _, s := range all {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

var _ repo.SubscriberRepo = (*memSubscriberRepo)(nil)

type memExamRepo struct {
	byID        map[string]domain.Exam
	upsertCalls int
}

func newMemExamRepo() *memExamRepo {
	return &memExamRepo{byID: make(map[string]domain.Exam)}
}

func (m *memExamRepo) Upsert(_ context.Context, e domain.Exam) (domain.Exam, error) {
	if cur, ok := m.byID[e.ExamID]; ok {
		e.ID = cur.ID
	} else {
		e.ID = uuid.New()
	}
	m.byID[e.ExamID] = e
	return e, nil
}

func (m *memExamRepo) UpsertMany(ctx context.Context, exams []domain.Exam) (int, error) {
	m.upsertCalls++
	for _, e := range exams {
		if _, err := m.Upsert(ctx, e); err != nil {
			return 0, err
		}
	}
	return len(exams), nil
}

func (m *memExamRepo) GetByExamID(_ context.Context, examID string) (domain.Exam, error) {
	e, ok := m.byID[examID]
	if !ok {
		return domain.Exam{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memExamRepo) List(_ context.Context, f domain.ExamFilter) ([]domain.Exam, error) {
	var out []domain.Exam
	for _, e := range m.byID {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if !e.Start.After(f.StartAfter) {
			continue
		}
		if len(f.Districts) > 0 && !slices.Contains(f.Districts, e.District) {
			continue
		}
		if f.RequireDisabledAccess && !e.DisabledAccess {
			continue
		}
		if f.RequireHeadphones && !e.Headphones {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ExamID < out[j].ExamID
	})
	return out, nil
}

var _ repo.ExamRepo = (*memExamRepo)(nil)

type memDistanceRepo struct {
	byKey   map[domain.RouteKey]domain.Distance
	creates int
}

func newMemDistanceRepo() *memDistanceRepo {
	return &memDistanceRepo{byKey: make(map[domain.RouteKey]domain.Distance)}
}

func (m *memDistanceRepo) Get(_ context.Context, key domain.RouteKey) (domain.Distance, error) {
	d, ok := m.byKey[key]
	if !ok {
		return domain.Distance{}, domain.ErrNotFound
	}
	return d, nil
}

func (m *memDistanceRepo) Create(_ context.Context, d domain.Distance) (domain.Distance, error) {
	key := domain.RouteKey{Start: d.StartAddress, End: d.EndAddress}
	if cur, ok := m.byKey[key]; ok {
		return cur, nil
	}
	m.creates++
	d.ID = uuid.New()
	m.byKey[key] = d
	return d, nil
}

var _ repo.DistanceRepo = (*memDistanceRepo)(nil)

type memLedger struct {
	entries []domain.NotificationLogEntry
	clock   time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memLedger) Append(_ context.Context, e domain.NotificationLogEntry) (domain.NotificationLogEntry, error) {
	m.clock = m.clock.Add(time.Second)
	e.ID = uuid.New()
	e.CreatedAt = m.clock
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memLedger) Latest(_ context.Context, subscriberID uuid.UUID) (domain.NotificationLogEntry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].SubscriberID == subscriberID {
			return m.entries[i], nil
		}
	}
	return domain.NotificationLogEntry{}, domain.ErrNotFound
}

func (m *memLedger) LatestByCategory(_ context.Context, subscriberID uuid.UUID, c domain.NotificationCategory) (domain.NotificationLogEntry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].SubscriberID == subscriberID && m.entries[i].Category == c {
			return m.entries[i], nil
		}
	}
	return domain.NotificationLogEntry{}, domain.ErrNotFound
}

func (m *memLedger) ListBySubscriber(_ context.Context, subscriberID uuid.UUID) ([]domain.NotificationLogEntry, error) {
	var out []domain.NotificationLogEntry
	for _, e := range m.entries {
		if e.SubscriberID == subscriberID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) count(subscriberID uuid.UUID, c domain.NotificationCategory) int {
	var n int
	for _, e := range m.entries {
		if e.SubscriberID == subscriberID && e.Category == c {
			n++
		}
	}
	return n
}

var _ repo.NotificationRepo = (*memLedger)(nil)

// ---- adapter mocks ---------------------------------------------------------

// mockSender records every message. send, if set, decides the outcome.
type mockSender struct {
	send func(msg domain.Message) error
	sent []domain.Message
}

func (m *mockSender) Send(_ context.Context, msg domain.Message) error {
	if m.send != nil {
		if err := m.send(msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) sentTo(email string) []domain.Message {
	var out []domain.Message
	for _, msg := range m.sent {
		if msg.To == email {
			out = append(out, msg)
		}
	}
	return out
}

var _ service.MailSender = (*mockSender)(nil)

type mockRouteProvider struct {
	route func(start, end string) (domain.Route, error)
	calls int
}

func (m *mockRouteProvider) Route(_ context.Context, start, end string) (domain.Route, error) {
	m.calls++
	return m.route(start, end)
}

var _ service.RouteProvider = (*mockRouteProvider)(nil)

type mockAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (m *mockAlerter) Alert(_ context.Context, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, text)
}

var _ service.Alerter = (*mockAlerter)(nil)

type staticRows struct {
	rows []domain.SubscriptionRow
	err  error
}

func (s *staticRows) Rows(context.Context) ([]domain.SubscriptionRow, error) {
	return s.rows, s.err
}

var _ service.RowSource = (*staticRows)(nil)

type staticExams struct {
	exams []domain.Exam
	err   error
}

func (s *staticExams) Fetch(context.Context) ([]domain.Exam, error) {
	return s.exams, s.err
}

var _ service.ExamSource = (*staticExams)(nil)

// ---- helpers ---------------------------------------------------------------

var errDB = errors.New("database unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(nil)
}

func testLinks() service.Links {
	return service.Links{
		ExamURL:        "https://exams.example.com/search",
		SubscribeURL:   "https://forms.example.com/subscribe",
		UnsubscribeURL: "https://forms.example.com/unsubscribe",
	}
}

func futureExam(examID string) domain.Exam {
	return domain.Exam{
		ExamID:              examID,
		Name:                "Test Exam",
		Street:              "Herzogspitalstraße",
		StreetNumber:        "24",
		City:                "München",
		PostalCode:          "80331",
		District:            domain.Oberbayern,
		Start:               time.Date(2099, 5, 17, 9, 0, 0, 0, domain.Berlin),
		MinParticipants:     1,
		MaxParticipants:     10,
		CurrentParticipants: 7,
		Status:              domain.StatusOpen,
		DisabledAccess:      true,
		Headphones:          true,
	}
}

func subscribeRow(email string, ts time.Time) domain.SubscriptionRow {
	return domain.SubscriptionRow{
		Timestamp: ts,
		Email:     email,
		Action:    domain.ActionSubscribe,
		RawAction: "Anmeldung / Aktualisierung",
	}
}

func unsubscribeRow(email string, ts time.Time) domain.SubscriptionRow {
	return domain.SubscriptionRow{
		Timestamp: ts,
		Email:     email,
		Action:    domain.ActionUnsubscribe,
		RawAction: "Abmeldung",
	}
}

func intPtr(i int) *int { return &i }
