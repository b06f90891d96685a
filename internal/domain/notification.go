package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationCategory classifies a sent mail in the notification ledger.
type NotificationCategory string

const (
	CategorySubscribe    NotificationCategory = "subscribe"
	CategoryUnsubscribe  NotificationCategory = "unsubscribe"
	CategoryNotification NotificationCategory = "notification"
)

// NotificationLogEntry records the exact plain-text body of a mail that was
// handed to the transport successfully. Entries are append-only.
type NotificationLogEntry struct {
	ID           uuid.UUID
	SubscriberID uuid.UUID
	Category     NotificationCategory
	Content      string
	CreatedAt    time.Time
}
