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

// NotificationRepo is the append-only notification ledger.
type NotificationRepo interface {
	// Append records a sent mail and returns the stored entry.
	Append(ctx context.Context, e domain.NotificationLogEntry) (domain.NotificationLogEntry, error)

	// Latest returns the newest entry of any category for the subscriber.
	// Returns domain.ErrNotFound if nothing was ever sent.
	Latest(ctx context.Context, subscriberID uuid.UUID) (domain.NotificationLogEntry, error)

	// LatestByCategory returns the newest entry of the given category.
	// Returns domain.ErrNotFound if there is none.
	LatestByCategory(ctx context.Context, subscriberID uuid.UUID, c domain.NotificationCategory) (domain.NotificationLogEntry, error)

	// ListBySubscriber returns all entries of a subscriber, oldest first.
	ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]domain.NotificationLogEntry, error)
}

// pgNotificationRepo is the Postgres implementation of NotificationRepo.
type pgNotificationRepo struct {
	db db
}

// NewNotificationRepo constructs a NotificationRepo backed by the provided db connection.
func NewNotificationRepo(db db) NotificationRepo {
	return &pgNotificationRepo{db: db}
}

// Append inserts a ledger row. created_at uses clock_timestamp() so entries
// written inside one transaction still order correctly.
func (r *pgNotificationRepo) Append(ctx context.Context, e domain.NotificationLogEntry) (domain.NotificationLogEntry, error) {
	const q = `
		INSERT INTO notification_log (subscriber_id, category, content)
		VALUES (@subscriber_id, @category, @content)
		RETURNING id, subscriber_id, category, content, created_at`

	args := pgx.NamedArgs{
		"subscriber_id": e.SubscriberID,
		"category":      string(e.Category),
		"content":       e.Content,
	}

	result, err := scanEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.NotificationLogEntry{}, fmt.Errorf("repo.NotificationRepo.Append: %w", err)
	}
	return result, nil
}

// Latest returns the most recent entry for the subscriber.
func (r *pgNotificationRepo) Latest(ctx context.Context, subscriberID uuid.UUID) (domain.NotificationLogEntry, error) {
	const q = `
		SELECT id, subscriber_id, category, content, created_at
		FROM notification_log
		WHERE subscriber_id = @subscriber_id
		ORDER BY created_at DESC
		LIMIT 1`

	result, err := scanEntry(r.db.QueryRow(ctx, q, pgx.NamedArgs{"subscriber_id": subscriberID}))
	if err != nil {
		return domain.NotificationLogEntry{}, fmt.Errorf("repo.NotificationRepo.Latest: %w", err)
	}
	return result, nil
}

// LatestByCategory returns the most recent entry of one category.
func (r *pgNotificationRepo) LatestByCategory(ctx context.Context, subscriberID uuid.UUID, c domain.NotificationCategory) (domain.NotificationLogEntry, error) {
	const q = `
		SELECT id, subscriber_id, category, content, created_at
		FROM notification_log
		WHERE subscriber_id = @subscriber_id AND category = @category
		ORDER BY created_at DESC
		LIMIT 1`

	args := pgx.NamedArgs{"subscriber_id": subscriberID, "category": string(c)}
	result, err := scanEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.NotificationLogEntry{}, fmt.Errorf("repo.NotificationRepo.LatestByCategory: %w", err)
	}
	return result, nil
}

// ListBySubscriber returns the full history of a subscriber.
func (r *pgNotificationRepo) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]domain.NotificationLogEntry, error) {
	const q = `
		SELECT id, subscriber_id, category, content, created_at
		FROM notification_log
		WHERE subscriber_id = @subscriber_id
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"subscriber_id": subscriberID})
	if err != nil {
		return nil, fmt.Errorf("repo.NotificationRepo.ListBySubscriber: %w", err)
	}
	defer rows.Close()

	var entries []domain.NotificationLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.NotificationRepo.ListBySubscriber: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.NotificationRepo.ListBySubscriber: rows: %w", err)
	}
	return entries, nil
}

func scanEntry(s scanner) (domain.NotificationLogEntry, error) {
	var (
		e        domain.NotificationLogEntry
		id       pgtype.UUID
		subID    pgtype.UUID
		category string
	)
	err := s.Scan(&id, &subID, &category, &e.Content, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotificationLogEntry{}, domain.ErrNotFound
		}
		return domain.NotificationLogEntry{}, err
	}
	e.ID = uuid.UUID(id.Bytes)
	e.SubscriberID = uuid.UUID(subID.Bytes)
	e.Category = domain.NotificationCategory(category)
	return e, nil
}
