package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule, e.g. a
// subscriber without an email address.
var ErrValidation = errors.New("validation error")

// ErrStructure is returned by the scrape adapter when the overview and detail
// views of the exam site do not line up. It aborts the ingestion cycle.
var ErrStructure = errors.New("exam site structure mismatch")

// ErrUnknownDistrict is returned when a district name is not one of the seven
// administrative regions.
var ErrUnknownDistrict = errors.New("unknown district")

// ErrUnknownStatus is returned when the exam site reports a status text that
// does not map to a known ExamStatus.
var ErrUnknownStatus = errors.New("unknown exam status")
