package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/service"
)

// harness wires real services over in-memory stores.
type harness struct {
	rows        *staticRows
	exams       *staticExams
	subscribers *memSubscriberRepo
	examStore   *memExamRepo
	ledger      *memLedger
	sender      *mockSender
	alerter     *mockAlerter
	alert       *service.AlertCycle
	confirm     *service.ConfirmationCycle
}

func newHarness() *harness {
	h := &harness{
		rows:        &staticRows{},
		exams:       &staticExams{},
		subscribers: newMemSubscriberRepo(),
		examStore:   newMemExamRepo(),
		ledger:      newMemLedger(),
		sender:      &mockSender{},
		alerter:     &mockAlerter{},
	}
	logger, m := discardLogger(), testMetrics()

	subs := service.NewSubscriberService(h.subscribers, h.rows, logger, m)
	exams := service.NewExamService(h.examStore, h.exams, logger, m)
	resolver := service.NewDistanceResolver(newMemDistanceRepo(), &mockRouteProvider{route: twoLegRoute}, h.alerter, 1_000_000, logger, m)
	matcher := service.NewMatcher(h.examStore, resolver, m)
	dispatcher := service.NewDispatcher(h.ledger, h.sender, service.NewRenderer(testLinks()), logger, m)

	h.alert = service.NewAlertCycle(subs, exams, h.subscribers, matcher, dispatcher, h.alerter, logger, m)
	h.confirm = service.NewConfirmationCycle(subs, h.subscribers, dispatcher, h.alerter, logger, m)
	return h
}

func TestAlertCycle_EndToEnd(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.rows.rows = []domain.SubscriptionRow{subscribeRow("anna@example.com", t0)}
	h.exams.exams = []domain.Exam{futureExam("0001")}

	require.NoError(t, h.alert.Run(ctx))
	mails := h.sender.sentTo("anna@example.com")
	require.Len(t, mails, 1)
	assert.Contains(t, mails[0].Text, "0001")

	// Unchanged listing: the same mail is not sent again.
	require.NoError(t, h.alert.Run(ctx))
	assert.Len(t, h.sender.sentTo("anna@example.com"), 1)

	// The exam fills up: no candidates, no mail.
	full := futureExam("0001")
	full.Status = domain.StatusFull
	h.exams.exams = []domain.Exam{full}

	require.NoError(t, h.alert.Run(ctx))
	assert.Len(t, h.sender.sentTo("anna@example.com"), 1)
	assert.Empty(t, h.alerter.alerts)
}

func TestAlertCycle_InactiveSubscribersGetNothing(t *testing.T) {
	h := newHarness()
	h.rows.rows = []domain.SubscriptionRow{
		subscribeRow("anna@example.com", t0),
		unsubscribeRow("anna@example.com", t0.Add(time.Hour)),
	}
	h.exams.exams = []domain.Exam{futureExam("0001")}

	require.NoError(t, h.alert.Run(context.Background()))

	assert.Empty(t, h.sender.sent)
}

func TestAlertCycle_PerSubscriberIsolation(t *testing.T) {
	h := newHarness()
	boom := errors.New("mailbox full")
	h.sender.send = func(msg domain.Message) error {
		if msg.To == "anna@example.com" {
			return boom
		}
		return nil
	}
	h.rows.rows = []domain.SubscriptionRow{
		subscribeRow("anna@example.com", t0),
		subscribeRow("ben@example.com", t0),
		subscribeRow("carl@example.com", t0),
	}
	h.exams.exams = []domain.Exam{futureExam("0001")}

	err := h.alert.Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "1 of 3 subscribers failed")
	assert.Len(t, h.sender.sentTo("ben@example.com"), 1)
	assert.Len(t, h.sender.sentTo("carl@example.com"), 1)
	assert.Len(t, h.alerter.alerts, 1, "one alert per cycle")
}

func TestAlertCycle_StructuralFailureAborts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.rows.rows = []domain.SubscriptionRow{subscribeRow("anna@example.com", t0)}
	h.exams.exams = []domain.Exam{futureExam("0001")}
	require.NoError(t, h.alert.Run(ctx))
	before := h.examStore.byID["0001"]

	h.exams.err = fmt.Errorf("5 overview rows but 4 detail tables: %w", domain.ErrStructure)
	err := h.alert.Run(ctx)

	require.ErrorIs(t, err, domain.ErrStructure)
	assert.Equal(t, before, h.examStore.byID["0001"])
	assert.Len(t, h.examStore.byID, 1)
	assert.Len(t, h.sender.sent, 1, "no mails in the aborted cycle")
	require.Len(t, h.alerter.alerts, 1)
	assert.Contains(t, h.alerter.alerts[0], "alert cycle failed")
}

func TestConfirmationCycle_Lifecycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.rows.rows = []domain.SubscriptionRow{subscribeRow("anna@example.com", t0)}
	require.NoError(t, h.confirm.Run(ctx))
	require.NoError(t, h.confirm.Run(ctx))

	mails := h.sender.sentTo("anna@example.com")
	require.Len(t, mails, 1, "confirmation is sent once")
	assert.Equal(t, "Anmeldung - Fischereiprüfungs Alarm!", mails[0].Subject)

	update := subscribeRow("anna@example.com", t0.Add(time.Hour))
	update.Districts = "Schwaben"
	h.rows.rows = append(h.rows.rows, update)
	require.NoError(t, h.confirm.Run(ctx))
	require.Len(t, h.sender.sentTo("anna@example.com"), 2, "changed preferences are confirmed again")

	h.rows.rows = append(h.rows.rows, unsubscribeRow("anna@example.com", t0.Add(2*time.Hour)))
	require.NoError(t, h.confirm.Run(ctx))
	require.NoError(t, h.confirm.Run(ctx))

	mails = h.sender.sentTo("anna@example.com")
	require.Len(t, mails, 3)
	assert.Equal(t, "Abmeldung - Fischereiprüfungs Alarm!", mails[2].Subject)
}

func TestConfirmationCycle_NeverSubscribedGetsNothing(t *testing.T) {
	h := newHarness()
	h.rows.rows = []domain.SubscriptionRow{unsubscribeRow("anna@example.com", t0)}

	require.NoError(t, h.confirm.Run(context.Background()))

	assert.Empty(t, h.sender.sent)
}

func TestRepeat_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	status := service.NewStatus()
	var runs atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- service.Repeat(ctx, time.Millisecond, status, func(context.Context) error {
			if runs.Add(1) == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Repeat did not stop after cancel")
	}
	assert.Equal(t, int32(3), runs.Load())
	snap := status.Snapshot()
	assert.Equal(t, 3, snap.Cycles)
	assert.Empty(t, snap.LastError)
}

func TestRepeat_ReturnsCycleError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("cycle failed")
	status := service.NewStatus()

	err := service.Repeat(context.Background(), time.Hour, status, func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "cycle failed", status.Snapshot().LastError)
}

func TestRepeat_InFlightCycleIgnoresCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel bool

	err := service.Repeat(ctx, time.Hour, service.NewStatus(), func(runCtx context.Context) error {
		cancel()
		sawCancel = runCtx.Err() != nil
		return nil
	})

	require.NoError(t, err)
	assert.False(t, sawCancel)
}
