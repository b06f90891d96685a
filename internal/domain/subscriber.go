// Package domain contains the core data types of the exam alert service:
// subscribers, exams, cached distances and the notification ledger.
// It depends on nothing but the standard library and uuid.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is a person who signed up for exam alerts through the
// subscription form. Email is the natural key; every reconciliation overwrites
// all other fields.
type Subscriber struct {
	ID                 uuid.UUID
	Email              string
	Active             bool
	PostalCode         string     // empty when not given
	Districts          []District // empty means all districts
	MaxTravelMinutes   *int       // nil means no travel filter
	NeedDisabledAccess bool
	NeedHeadphones     bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AddressLine returns the start address used for distance lookups, or ""
// when the subscriber has no postal code.
func (s Subscriber) AddressLine() string {
	if s.PostalCode == "" {
		return ""
	}
	return s.PostalCode + ", Deutschland"
}

// Username is the local part of the email address, used as mail greeting.
func (s Subscriber) Username() string {
	for i := 0; i < len(s.Email); i++ {
		if s.Email[i] == '@' {
			return s.Email[:i]
		}
	}
	return s.Email
}
