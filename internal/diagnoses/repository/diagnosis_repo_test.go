package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupRepo(t *testing.T) *DiagnosisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDiagnosisRepository(client, "leafit", nil)
}

func TestDiagnosisRepository_CreateDefaults(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	d := &domain.Diagnosis{PlantName: "Tomato", Symptoms: "yellow leaves", Status: domain.StatusOngoing}
	require.NoError(t, repo.Create(ctx, d))
	assert.NotEmpty(t, d.ID)

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Application{}, got.Treatments)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDiagnosisNotFound)
}

func TestDiagnosisRepository_ListFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := []*domain.Diagnosis{
		{ID: "d1", PlantName: "Cherry Tomato", Symptoms: "wilting", Status: domain.StatusOngoing, CreatedAt: base},
		{ID: "d2", PlantName: "Basil", Symptoms: "black spots on tomato-like fruit", Status: domain.StatusResolved, CreatedAt: base.Add(time.Hour)},
		{ID: "d3", PlantName: "Rose", Symptoms: "powdery mildew", Status: domain.StatusOngoing, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, d := range seed {
		require.NoError(t, repo.Create(ctx, d))
	}

	ids := func(f domain.ListFilter) []string {
		items, err := repo.List(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, d := range items {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []string{"d3", "d2", "d1"}, ids(domain.ListFilter{}))
	assert.Equal(t, []string{"d2", "d1"}, ids(domain.ListFilter{Search: "TOMATO"}))
	assert.Equal(t, []string{"d1"}, ids(domain.ListFilter{PlantSpecies: "tomato"}))
	assert.Equal(t, []string{"d3", "d1"}, ids(domain.ListFilter{Status: domain.StatusOngoing}))
	assert.Equal(t, []string{}, ids(domain.ListFilter{Status: domain.StatusOngoing, Search: "basil"}))
}

func TestDiagnosisRepository_AppendApplicationKeepsOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	d := &domain.Diagnosis{PlantName: "Tomato", Symptoms: "spots", Status: domain.StatusOngoing}
	require.NoError(t, repo.Create(ctx, d))

	at := d.CreatedAt.Add(time.Minute)
	for i, r := range []string{domain.ResultTesting, domain.ResultWorked} {
		app := domain.Application{TreatmentID: "t1", AppliedBy: "fern", AppliedAt: at, Result: r}
		require.NoError(t, repo.AppendApplication(ctx, d.ID, app, at.Add(time.Duration(i)*time.Second)))
	}

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Treatments, 2)
	assert.Equal(t, domain.ResultTesting, got.Treatments[0].Result)
	assert.Equal(t, domain.ResultWorked, got.Treatments[1].Result)
	assert.Equal(t, at.Add(time.Second), got.UpdatedAt)

	err = repo.AppendApplication(ctx, "missing", domain.Application{}, at)
	assert.ErrorIs(t, err, domain.ErrDiagnosisNotFound)
}

func TestDiagnosisRepository_PublishesEvents(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	d := &domain.Diagnosis{PlantName: "Tomato", Symptoms: "spots", Status: domain.StatusOngoing}
	require.NoError(t, repo.Create(ctx, d))

	ch, stop, err := repo.Watch(ctx, d.ID)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, repo.AppendApplication(ctx, d.ID, domain.Application{TreatmentID: "t1", Result: domain.ResultTesting}, time.Now()))
	require.NoError(t, repo.Delete(ctx, d.ID))

	var events []domain.Event
	for len(events) < 2 {
		select {
		case ev, ok := <-ch:
			require.True(t, ok)
			events = append(events, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for diagnosis events")
		}
	}

	assert.Equal(t, domain.EventUpdated, events[0].Type)
	require.NotNil(t, events[0].Diagnosis)
	assert.Len(t, events[0].Diagnosis.Treatments, 1)
	assert.Equal(t, domain.EventDeleted, events[1].Type)
	assert.Equal(t, d.ID, events[1].ID)

	assert.ErrorIs(t, repo.Delete(ctx, d.ID), domain.ErrDiagnosisNotFound)
}

func TestDiagnosisRepository_WatchStops(t *testing.T) {
	repo := setupRepo(t)

	ch, stop, err := repo.Watch(context.Background(), "d1")
	require.NoError(t, err)
	stop()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after stop")
	}
}

func TestDiagnosisRepository_PublishFailureIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewDiagnosisRepository(client, "leafit", &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	require.NoError(t, client.Close())
	repo.publish(context.Background(), domain.Event{Type: domain.EventDeleted, ID: "d1"})

	entries := logs.FilterMessage("publish diagnosis event failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "d1", fields["diagnosis_id"])
	assert.Equal(t, domain.EventDeleted, fields["event"])
}
