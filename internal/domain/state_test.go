package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

func TestDeriveState(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := &domain.NotificationLogEntry{Category: domain.CategorySubscribe, Content: "body", CreatedAt: base}
	stale := &domain.NotificationLogEntry{Category: domain.CategorySubscribe, Content: "old body", CreatedAt: base}
	unsubLater := &domain.NotificationLogEntry{Category: domain.CategoryUnsubscribe, CreatedAt: base.Add(time.Hour)}
	unsubEarlier := &domain.NotificationLogEntry{Category: domain.CategoryUnsubscribe, CreatedAt: base.Add(-time.Hour)}

	tests := []struct {
		name   string
		active bool
		sub    *domain.NotificationLogEntry
		unsub  *domain.NotificationLogEntry
		want   domain.SubscriptionState
	}{
		{name: "new subscriber", active: true, want: domain.StateUnconfirmed},
		{name: "confirmed", active: true, sub: sub, want: domain.StateConfirmed},
		{name: "preferences changed", active: true, sub: stale, want: domain.StateUnconfirmed},
		{name: "resubscribed", active: true, sub: sub, unsub: unsubLater, want: domain.StateUnconfirmed},
		{name: "confirmed after old unsubscribe", active: true, sub: sub, unsub: unsubEarlier, want: domain.StateConfirmed},
		{name: "unsubscribe pending", active: false, sub: sub, want: domain.StateUnsubscribePending},
		{name: "unsubscribed", active: false, sub: sub, unsub: unsubLater, want: domain.StateUnsubscribed},
		{name: "never subscribed", active: false, want: domain.StateUnsubscribed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DeriveState(tt.active, tt.sub, tt.unsub, "body"))
		})
	}
}

func TestSubscriptionState_String(t *testing.T) {
	assert.Equal(t, "unsubscribe_pending", domain.StateUnsubscribePending.String())
	assert.Equal(t, "unknown", domain.SubscriptionState(42).String())
}
