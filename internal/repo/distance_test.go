package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

func TestDistanceRepo_CreateAndGet(t *testing.T) {
	r := repo.NewDistanceRepo(newTestTx(t))
	ctx := context.Background()

	created, err := r.Create(ctx, domain.Distance{
		StartAddress: "80331, Deutschland",
		EndAddress:   "Hauptstraße 1, 86150 Augsburg, Deutschland",
		Meters:       68000,
		Seconds:      2700,
		Details:      `{"routes":[]}`,
	})
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, created.ID)

	got, err := r.Get(ctx, domain.NewRouteKey("80331, Deutschland", "Hauptstraße 1, 86150 Augsburg, Deutschland"))
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestDistanceRepo_Create_KeepsExisting(t *testing.T) {
	r := repo.NewDistanceRepo(newTestTx(t))
	ctx := context.Background()

	d := domain.Distance{StartAddress: "a", EndAddress: "b", Meters: 100, Seconds: 60}
	first, err := r.Create(ctx, d)
	require.NoError(t, err)

	d.Meters = 999
	second, err := r.Create(ctx, d)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 100, second.Meters, "cached distance must not be overwritten")
}

func TestDistanceRepo_Get_IsDirectional(t *testing.T) {
	r := repo.NewDistanceRepo(newTestTx(t))
	ctx := context.Background()

	_, err := r.Create(ctx, domain.Distance{StartAddress: "a", EndAddress: "b", Meters: 1, Seconds: 1})
	require.NoError(t, err)

	_, err = r.Get(ctx, domain.RouteKey{Start: "b", End: "a"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
