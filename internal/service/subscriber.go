// Package service contains the business logic of the exam alert service:
// reconciling subscribers, ingesting exams, matching them and dispatching
// deduplicated notifications. No SQL lives here; services depend on repo
// interfaces and on small adapter interfaces declared next to their consumer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

// RowSource yields the raw rows of the subscription spreadsheet.
type RowSource interface {
	Rows(ctx context.Context) ([]domain.SubscriptionRow, error)
}

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	Rows        int // rows read from the source
	Ignored     int // rows dropped for an unknown action or missing email
	Subscribers int // subscribers upserted
	Active      int // of which active
	Warnings    int // malformed fields that fell back to defaults
}

// SubscriberService reconciles the subscription spreadsheet into the
// subscriber store.
type SubscriberService struct {
	repo    repo.SubscriberRepo
	source  RowSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSubscriberService constructs a SubscriberService.
func NewSubscriberService(r repo.SubscriberRepo, src RowSource, logger *slog.Logger, m *metrics.Metrics) *SubscriberService {
	return &SubscriberService{repo: r, source: src, logger: logger, metrics: m}
}

// Sync reads all rows from the source and reconciles them.
func (s *SubscriberService) Sync(ctx context.Context) (ReconcileResult, error) {
	rows, err := s.source.Rows(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("service.SubscriberService.Sync: %w", err)
	}
	return s.Reconcile(ctx, rows)
}

// Reconcile groups rows by email, keeps the row with the latest timestamp per
// email (on a tie the row seen last wins) and upserts one subscriber per
// email with every attribute overwritten. Malformed preference fields fall
// back to their default and are logged; they never abort the batch. Store
// errors do.
func (s *SubscriberService) Reconcile(ctx context.Context, rows []domain.SubscriptionRow) (ReconcileResult, error) {
	res := ReconcileResult{Rows: len(rows)}

	latest := make(map[string]domain.SubscriptionRow)
	var order []string
	for _, row := range rows {
		email := normalizeEmail(row.Email)
		if email == "" {
			res.Ignored++
			continue
		}
		if row.Action == domain.ActionUnknown {
			s.logger.WarnContext(ctx, "ignoring row with unknown action",
				"email", email, "action", row.RawAction)
			res.Ignored++
			continue
		}
		cur, seen := latest[email]
		if !seen {
			order = append(order, email)
		}
		if !seen || !row.Timestamp.Before(cur.Timestamp) {
			latest[email] = row
		}
	}

	for _, email := range order {
		sub, warnings := subscriberFromRow(email, latest[email])
		for _, w := range warnings {
			s.logger.WarnContext(ctx, "malformed subscription field", "email", email, "problem", w)
		}
		res.Warnings += len(warnings)

		if _, err := s.repo.Upsert(ctx, sub); err != nil {
			return res, fmt.Errorf("service.SubscriberService.Reconcile: %w", err)
		}
		res.Subscribers++
		if sub.Active {
			res.Active++
		}
		s.metrics.SubscribersReconciled.Inc()
	}

	s.logger.InfoContext(ctx, "subscribers reconciled",
		"rows", res.Rows, "subscribers", res.Subscribers, "active", res.Active,
		"ignored", res.Ignored, "warnings", res.Warnings)
	return res, nil
}

// subscriberFromRow builds the full subscriber state of one row. Every field
// is set, so an upsert never keeps a value from an older row.
func subscriberFromRow(email string, row domain.SubscriptionRow) (domain.Subscriber, []string) {
	var warnings []string

	sub := domain.Subscriber{
		Email:      email,
		Active:     row.Action == domain.ActionSubscribe,
		PostalCode: strings.TrimSpace(row.PostalCode),
	}

	districts, unknown := domain.ParseDistrictList(row.Districts)
	sub.Districts = districts
	for _, u := range unknown {
		warnings = append(warnings, fmt.Sprintf("unknown district %q", u))
	}

	if raw := strings.TrimSpace(row.MaxTravelMinutes); raw != "" {
		minutes, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("max travel minutes %q is not a number", raw))
		case minutes <= 0:
			warnings = append(warnings, fmt.Sprintf("max travel minutes %d is not positive", minutes))
		default:
			sub.MaxTravelMinutes = &minutes
		}
	}

	sub.NeedDisabledAccess, sub.NeedHeadphones = parseEquipment(row.Equipment)
	return sub, warnings
}

// parseEquipment reads the checkbox answer of the equipment question, e.g.
// "Behindertengerecht, Kopfhörer". Empty means no requirement.
func parseEquipment(s string) (disabledAccess, headphones bool) {
	lower := strings.ToLower(s)
	disabledAccess = strings.Contains(lower, "behindertengerecht")
	headphones = strings.Contains(lower, "kopfhörer") || strings.Contains(lower, "kopfhoerer")
	return disabledAccess, headphones
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
