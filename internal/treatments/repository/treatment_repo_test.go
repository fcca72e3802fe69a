package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leafit/leafit-backend/internal/platform/apperr"
	"github.com/leafit/leafit-backend/internal/treatments/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *TreatmentRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTreatmentRepository(client, "leafit")
}

func TestTreatmentRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	tr := &domain.Treatment{UserID: "u1", Name: "Neem oil", Type: domain.TypeOrganic}
	require.NoError(t, repo.Create(ctx, tr))
	assert.NotEmpty(t, tr.ID)
	assert.False(t, tr.CreatedAt.IsZero())
	assert.Equal(t, tr.CreatedAt, tr.UpdatedAt)
	assert.NotNil(t, tr.Ingredients)

	got, err := repo.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Neem oil", got.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTreatmentRepository_ListFilterAndOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := []*domain.Treatment{
		{ID: "t1", Name: "Neem oil", Type: domain.TypeOrganic, ProblemsSolved: "aphids, mites", SuccessRate: 50, CreatedAt: base},
		{ID: "t2", Name: "Copper spray", Type: domain.TypeChemical, ProblemsSolved: "blight", SuccessRate: 80, CreatedAt: base.Add(time.Hour)},
		{ID: "t3", Name: "Soap water", Type: domain.TypeOrganic, ProblemsSolved: "Aphids", SuccessRate: 50, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, tr := range seed {
		require.NoError(t, repo.Create(ctx, tr))
	}

	ids := func(items []*domain.Treatment) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	all, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3", "t1"}, ids(all))

	organic, err := repo.List(ctx, domain.ListFilter{Type: domain.TypeOrganic})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, ids(organic))

	aphids, err := repo.List(ctx, domain.ListFilter{Problem: "APHID"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, ids(aphids))

	byName, err := repo.List(ctx, domain.ListFilter{Search: "copper"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, ids(byName))

	byProblem, err := repo.List(ctx, domain.ListFilter{Search: "blight"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, ids(byProblem))
}

func TestTreatmentRepository_UpdateAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	tr := &domain.Treatment{Name: "Neem oil"}
	require.NoError(t, repo.Create(ctx, tr))

	updated, err := repo.Update(ctx, tr.ID, func(t *domain.Treatment) error {
		t.Instructions = "Spray weekly"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Spray weekly", updated.Instructions)

	_, err = repo.Update(ctx, "missing", func(*domain.Treatment) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTreatmentNotFound)

	require.NoError(t, repo.Delete(ctx, tr.ID))
	assert.ErrorIs(t, repo.Delete(ctx, tr.ID), domain.ErrTreatmentNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
