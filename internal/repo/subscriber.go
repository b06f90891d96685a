package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// SubscriberRepo defines the persistence operations for subscribers.
type SubscriberRepo interface {
	// Upsert inserts a subscriber or, if the email already exists, overwrites
	// every attribute with the given values and refreshes updated_at.
	Upsert(ctx context.Context, s domain.Subscriber) (domain.Subscriber, error)

	// GetByEmail returns the subscriber with that email.
	// Returns domain.ErrNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (domain.Subscriber, error)

	// List returns all subscribers ordered by email.
	List(ctx context.Context) ([]domain.Subscriber, error)

	// ListActive returns all active subscribers ordered by email.
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
}

// pgSubscriberRepo is the Postgres implementation of SubscriberRepo.
type pgSubscriberRepo struct {
	db db
}

// NewSubscriberRepo constructs a SubscriberRepo backed by the provided db connection.
func NewSubscriberRepo(db db) SubscriberRepo {
	return &pgSubscriberRepo{db: db}
}

const subscriberColumns = `id, email, active, postal_code, districts, max_travel_minutes,
	need_disabled_access, need_headphones, created_at, updated_at`

// Upsert writes all columns on conflict, so no field of an earlier write survives.
func (r *pgSubscriberRepo) Upsert(ctx context.Context, s domain.Subscriber) (domain.Subscriber, error) {
	const q = `
		INSERT INTO subscribers (email, active, postal_code, districts, max_travel_minutes,
		                         need_disabled_access, need_headphones)
		VALUES (@email, @active, @postal_code, @districts, @max_travel_minutes,
		        @need_disabled_access, @need_headphones)
		ON CONFLICT (email) DO UPDATE
		SET active               = EXCLUDED.active,
		    postal_code          = EXCLUDED.postal_code,
		    districts            = EXCLUDED.districts,
		    max_travel_minutes   = EXCLUDED.max_travel_minutes,
		    need_disabled_access = EXCLUDED.need_disabled_access,
		    need_headphones      = EXCLUDED.need_headphones,
		    updated_at           = now()
		RETURNING ` + subscriberColumns

	args := pgx.NamedArgs{
		"email":                s.Email,
		"active":               s.Active,
		"postal_code":          s.PostalCode,
		"districts":            districtStrings(s.Districts),
		"max_travel_minutes":   s.MaxTravelMinutes, // nil becomes NULL
		"need_disabled_access": s.NeedDisabledAccess,
		"need_headphones":      s.NeedHeadphones,
	}

	result, err := scanSubscriber(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("repo.SubscriberRepo.Upsert: %w", err)
	}
	return result, nil
}

// GetByEmail retrieves a subscriber by its natural key.
func (r *pgSubscriberRepo) GetByEmail(ctx context.Context, email string) (domain.Subscriber, error) {
	q := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = @email`

	result, err := scanSubscriber(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("repo.SubscriberRepo.GetByEmail: %w", err)
	}
	return result, nil
}

// List returns every subscriber regardless of the active flag.
func (r *pgSubscriberRepo) List(ctx context.Context) ([]domain.Subscriber, error) {
	q := `SELECT ` + subscriberColumns + ` FROM subscribers ORDER BY email`
	subs, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SubscriberRepo.List: %w", err)
	}
	return subs, nil
}

// ListActive returns subscribers whose latest form row was a subscription.
func (r *pgSubscriberRepo) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	q := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE active ORDER BY email`
	subs, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SubscriberRepo.ListActive: %w", err)
	}
	return subs, nil
}

func (r *pgSubscriberRepo) query(ctx context.Context, q string, args ...any) ([]domain.Subscriber, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return subs, nil
}

// scanSubscriber maps a single database row into a domain.Subscriber.
// It handles the UUID, the nullable travel limit and the district array.
func scanSubscriber(s scanner) (domain.Subscriber, error) {
	var (
		sub       domain.Subscriber
		id        pgtype.UUID
		districts []string
		maxTravel pgtype.Int4
	)

	err := s.Scan(&id, &sub.Email, &sub.Active, &sub.PostalCode, &districts, &maxTravel,
		&sub.NeedDisabledAccess, &sub.NeedHeadphones, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscriber{}, domain.ErrNotFound
		}
		return domain.Subscriber{}, err
	}

	sub.ID = uuid.UUID(id.Bytes)
	if maxTravel.Valid {
		m := int(maxTravel.Int32)
		sub.MaxTravelMinutes = &m
	}
	for _, d := range districts {
		sub.Districts = append(sub.Districts, domain.District(d))
	}
	return sub, nil
}

// districtStrings converts districts for a TEXT[] column.
// It never returns nil: a NULL array would break the ANY() filters.
func districtStrings(ds []domain.District) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, string(d))
	}
	return out
}
