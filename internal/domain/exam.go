package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExamStatus is the availability text the exam site shows for an exam.
type ExamStatus string

const (
	// StatusOpen is the only status that makes an exam a match candidate.
	StatusOpen ExamStatus = "Frei"
	StatusFull ExamStatus = "Belegt"
	// StatusUnknown replaces site texts that map to no known status.
	StatusUnknown ExamStatus = "Unbekannt"
)

var examStatuses = []ExamStatus{StatusOpen, StatusFull}

// ParseExamStatus maps the site's status text to a known ExamStatus.
func ParseExamStatus(s string) (ExamStatus, error) {
	text := strings.TrimSpace(s)
	for _, st := range examStatuses {
		if strings.EqualFold(text, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Exam is a single fishing exam appointment as listed on the exam site.
// ExamID is assigned by the site and is the natural key.
type Exam struct {
	ID                  uuid.UUID
	ExamID              string
	Name                string
	Street              string
	StreetNumber        string
	City                string
	PostalCode          string
	District            District
	Start               time.Time
	MinParticipants     int
	MaxParticipants     int
	CurrentParticipants int
	Status              ExamStatus
	DisabledAccess      bool
	Headphones          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AddressLine returns the destination address used for distance lookups.
func (e Exam) AddressLine() string {
	return fmt.Sprintf("%s %s, %s %s, Deutschland", e.Street, e.StreetNumber, e.PostalCode, e.City)
}

// ExamFilter narrows an exam query. Zero values impose no constraint:
// RequireDisabledAccess=false does not exclude exams that have access.
type ExamFilter struct {
	Status                ExamStatus
	StartAfter            time.Time
	Districts             []District
	RequireDisabledAccess bool
	RequireHeadphones     bool
}
