package domain

import "time"

// SubscriptionAction is the choice a user made on the subscription form.
type SubscriptionAction int

const (
	ActionUnknown SubscriptionAction = iota
	ActionSubscribe
	ActionUnsubscribe
)

// SubscriptionRow is one raw row of the subscription spreadsheet after
// column mapping. Preference fields are kept as raw text; reconciliation
// parses them and falls back to defaults on malformed input.
type SubscriptionRow struct {
	Timestamp        time.Time
	Email            string
	Action           SubscriptionAction
	RawAction        string
	Districts        string
	PostalCode       string
	MaxTravelMinutes string
	Equipment        string
}
