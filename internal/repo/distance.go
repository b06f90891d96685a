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

// DistanceRepo defines the persistence operations for cached routing results.
type DistanceRepo interface {
	// Get returns the cached distance for the directed address pair.
	// Returns domain.ErrNotFound if the pair was never resolved.
	Get(ctx context.Context, key domain.RouteKey) (domain.Distance, error)

	// Create stores a resolved distance. If the pair already exists the stored
	// row is returned unchanged; cached entries are never overwritten.
	Create(ctx context.Context, d domain.Distance) (domain.Distance, error)
}

// pgDistanceRepo is the Postgres implementation of DistanceRepo.
type pgDistanceRepo struct {
	db db
}

// NewDistanceRepo constructs a DistanceRepo backed by the provided db connection.
func NewDistanceRepo(db db) DistanceRepo {
	return &pgDistanceRepo{db: db}
}

// Get looks up the pair by its unique (start_address, end_address) key.
func (r *pgDistanceRepo) Get(ctx context.Context, key domain.RouteKey) (domain.Distance, error) {
	const q = `
		SELECT id, start_address, end_address, distance, duration, details
		FROM distances
		WHERE start_address = @start AND end_address = @end`

	result, err := scanDistance(r.db.QueryRow(ctx, q, pgx.NamedArgs{"start": key.Start, "end": key.End}))
	if err != nil {
		return domain.Distance{}, fmt.Errorf("repo.DistanceRepo.Get: %w", err)
	}
	return result, nil
}

// Create inserts the distance. The DO UPDATE SET no-op makes RETURNING fire on
// conflict too, handing back the existing row instead of the new values.
func (r *pgDistanceRepo) Create(ctx context.Context, d domain.Distance) (domain.Distance, error) {
	const q = `
		INSERT INTO distances (start_address, end_address, distance, duration, details)
		VALUES (@start, @end, @distance, @duration, @details)
		ON CONFLICT (start_address, end_address) DO UPDATE SET start_address = EXCLUDED.start_address
		RETURNING id, start_address, end_address, distance, duration, details`

	args := pgx.NamedArgs{
		"start":    d.StartAddress,
		"end":      d.EndAddress,
		"distance": d.Meters,
		"duration": d.Seconds,
		"details":  d.Details,
	}

	result, err := scanDistance(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Distance{}, fmt.Errorf("repo.DistanceRepo.Create: %w", err)
	}
	return result, nil
}

func scanDistance(s scanner) (domain.Distance, error) {
	var (
		d  domain.Distance
		id pgtype.UUID
	)
	err := s.Scan(&id, &d.StartAddress, &d.EndAddress, &d.Meters, &d.Seconds, &d.Details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Distance{}, domain.ErrNotFound
		}
		return domain.Distance{}, err
	}
	d.ID = uuid.UUID(id.Bytes)
	return d, nil
}
