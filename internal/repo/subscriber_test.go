package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

func TestSubscriberRepo_Upsert_Insert(t *testing.T) {
	r := repo.NewSubscriberRepo(newTestTx(t))
	ctx := context.Background()

	input := subscriberFixture("anna@example.com")
	got, err := r.Upsert(ctx, input)

	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, got.ID, "ID should be DB-generated UUID")
	assert.Equal(t, input.Email, got.Email)
	assert.True(t, got.Active)
	assert.Equal(t, "80331", got.PostalCode)
	assert.Equal(t, input.Districts, got.Districts)
	require.NotNil(t, got.MaxTravelMinutes)
	assert.Equal(t, 45, *got.MaxTravelMinutes)
	assert.True(t, got.NeedDisabledAccess)
	assert.False(t, got.NeedHeadphones)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set by DB")
}

func TestSubscriberRepo_Upsert_OverwritesEveryField(t *testing.T) {
	r := repo.NewSubscriberRepo(newTestTx(t))
	ctx := context.Background()

	first, err := r.Upsert(ctx, subscriberFixture("anna@example.com"))
	require.NoError(t, err)

	second, err := r.Upsert(ctx, domain.Subscriber{Email: "anna@example.com", Active: false})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same email must keep the same row")
	assert.False(t, second.Active)
	assert.Empty(t, second.PostalCode)
	assert.Empty(t, second.Districts)
	assert.Nil(t, second.MaxTravelMinutes)
	assert.False(t, second.NeedDisabledAccess)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestSubscriberRepo_Upsert_Idempotent(t *testing.T) {
	r := repo.NewSubscriberRepo(newTestTx(t))
	ctx := context.Background()

	s := subscriberFixture("anna@example.com")
	_, err := r.Upsert(ctx, s)
	require.NoError(t, err)
	_, err = r.Upsert(ctx, s)
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)

	var count int
	for _, sub := range all {
		if sub.Email == s.Email {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSubscriberRepo_GetByEmail_NotFound(t *testing.T) {
	r := repo.NewSubscriberRepo(newTestTx(t))

	_, err := r.GetByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubscriberRepo_ListActive(t *testing.T) {
	r := repo.NewSubscriberRepo(newTestTx(t))
	ctx := context.Background()

	_, err := r.Upsert(ctx, subscriberFixture("active@example.com"))
	require.NoError(t, err)
	inactive := subscriberFixture("inactive@example.com")
	inactive.Active = false
	_, err = r.Upsert(ctx, inactive)
	require.NoError(t, err)

	subs, err := r.ListActive(ctx)
	require.NoError(t, err)

	var emails []string
	for _, s := range subs {
		emails = append(emails, s.Email)
	}
	assert.Contains(t, emails, "active@example.com")
	assert.NotContains(t, emails, "inactive@example.com")
}
