package domain

// SubscriptionState is the confirmation state of a subscriber, derived from
// the active flag and the ledger's latest confirmation mails.
type SubscriptionState int

const (
	// StateUnconfirmed: active, but the current confirmation was not sent yet.
	StateUnconfirmed SubscriptionState = iota
	// StateConfirmed: active and the current confirmation was sent.
	StateConfirmed
	// StateUnsubscribePending: inactive after a confirmed subscription,
	// unsubscribe confirmation not sent yet.
	StateUnsubscribePending
	// StateUnsubscribed: inactive and nothing left to confirm.
	StateUnsubscribed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateUnconfirmed:
		return "unconfirmed"
	case StateConfirmed:
		return "confirmed"
	case StateUnsubscribePending:
		return "unsubscribe_pending"
	case StateUnsubscribed:
		return "unsubscribed"
	default:
		return "unknown"
	}
}

// DeriveState computes the subscription state.
//
// lastSubscribe and lastUnsubscribe are the newest ledger entries of the
// respective category (nil if none). confirmationBody is the subscribe
// confirmation the subscriber would receive for their current preferences;
// a changed preference set therefore makes an active subscriber unconfirmed
// again.
func DeriveState(active bool, lastSubscribe, lastUnsubscribe *NotificationLogEntry, confirmationBody string) SubscriptionState {
	subscribedLast := lastSubscribe != nil &&
		(lastUnsubscribe == nil || lastSubscribe.CreatedAt.After(lastUnsubscribe.CreatedAt))

	if active {
		if subscribedLast && lastSubscribe.Content == confirmationBody {
			return StateConfirmed
		}
		return StateUnconfirmed
	}
	if subscribedLast {
		return StateUnsubscribePending
	}
	return StateUnsubscribed
}
