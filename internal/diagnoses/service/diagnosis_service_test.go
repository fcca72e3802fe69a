package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/diagnoses/repository"
	"github.com/leafit/leafit-backend/internal/platform/access"
	"github.com/leafit/leafit-backend/internal/platform/apperr"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	tdomain "github.com/leafit/leafit-backend/internal/treatments/domain"
	trepo "github.com/leafit/leafit-backend/internal/treatments/repository"
	tservice "github.com/leafit/leafit-backend/internal/treatments/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = access.Actor{UserID: "user-1", Username: "fern"}
	stranger = access.Actor{UserID: "user-2", Username: "moss"}
)

type fixture struct {
	svc        *DiagnosisService
	treatments *tservice.TreatmentService
}

func setup(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ts := tservice.NewTreatmentService(trepo.NewTreatmentRepository(client, "leafit"), nil, logger.Nop())
	ds := NewDiagnosisService(repository.NewDiagnosisRepository(client, "leafit", nil), ts, nil, logger.Nop())
	return fixture{svc: ds, treatments: ts}
}

type failingRater struct{ calls int }

func (f *failingRater) Rate(context.Context, string, bool) (*tdomain.Treatment, error) {
	f.calls++
	return nil, errors.New("redis: connection refused")
}

func (f fixture) newDiagnosis(t *testing.T) *domain.Diagnosis {
	t.Helper()
	d, err := f.svc.Create(context.Background(), owner, domain.CreateDiagnosisRequest{
		PlantName: "Tomato",
		Symptoms:  "yellow leaves",
	})
	require.NoError(t, err)
	return d
}

func (f fixture) newTreatment(t *testing.T) *tdomain.Treatment {
	t.Helper()
	tr, err := f.treatments.Create(context.Background(), owner, tdomain.CreateTreatmentRequest{
		Name:           "Neem oil",
		Instructions:   "Spray weekly",
		Type:           tdomain.TypeOrganic,
		ProblemsSolved: "aphids",
	})
	require.NoError(t, err)
	return tr
}

func TestDiagnosisService_Create(t *testing.T) {
	f := setup(t)
	d := f.newDiagnosis(t)

	assert.Equal(t, domain.StatusOngoing, d.Status)
	assert.Empty(t, d.Treatments)
	assert.Equal(t, owner.UserID, d.UserID)
	assert.Equal(t, owner.Username, d.Username)

	_, err := f.svc.Create(context.Background(), owner, domain.CreateDiagnosisRequest{PlantName: "Tomato"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	_, err = f.svc.Create(context.Background(), access.Actor{}, domain.CreateDiagnosisRequest{PlantName: "a", Symptoms: "b"})
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestDiagnosisService_OwnershipGuard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)

	resolved := domain.StatusResolved
	_, err := f.svc.Update(ctx, stranger, d.ID, domain.UpdateDiagnosisRequest{Status: &resolved})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	err = f.svc.Delete(ctx, stranger, d.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	empty := ""
	updated, err := f.svc.Update(ctx, owner, d.ID, domain.UpdateDiagnosisRequest{
		Status:      &resolved,
		Symptoms:    &empty,
		Description: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, updated.Status)
	assert.Equal(t, "yellow leaves", updated.Symptoms)

	bad := "closed"
	_, err = f.svc.Update(ctx, owner, d.ID, domain.UpdateDiagnosisRequest{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	require.NoError(t, f.svc.Delete(ctx, owner, d.ID))
	_, err = f.svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrDiagnosisNotFound)
}

func TestDiagnosisService_RecordApplicationIsOpenToAnyUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)

	// stranger does not own the diagnosis and the treatment does not exist
	require.NoError(t, f.svc.RecordApplication(ctx, stranger, d.ID, "no-such-treatment", ""))

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Treatments, 1)
	app := got.Treatments[0]
	assert.Equal(t, "no-such-treatment", app.TreatmentID)
	assert.Equal(t, stranger.Username, app.AppliedBy)
	assert.Equal(t, domain.ResultTesting, app.Result)
	assert.Equal(t, app.AppliedAt, got.UpdatedAt)
}

func TestDiagnosisService_RecordApplicationErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)

	err := f.svc.RecordApplication(ctx, owner, "missing", "t1", domain.ResultTesting)
	assert.ErrorIs(t, err, domain.ErrDiagnosisNotFound)

	err = f.svc.RecordApplication(ctx, owner, d.ID, " ", domain.ResultTesting)
	assert.ErrorIs(t, err, domain.ErrMissingTreatmentID)

	err = f.svc.RecordApplication(ctx, owner, d.ID, "t1", "maybe")
	assert.ErrorIs(t, err, domain.ErrInvalidResult)

	err = f.svc.RecordApplication(ctx, access.Actor{}, d.ID, "t1", domain.ResultTesting)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestDiagnosisService_ApplyTestingLeavesTreatmentUnchanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)
	tr := f.newTreatment(t)

	require.NoError(t, f.svc.ApplyTreatment(ctx, stranger, d.ID, tr.ID, domain.ResultTesting))

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Treatments, 1)
	assert.Equal(t, domain.ResultTesting, got.Treatments[0].Result)

	after, err := f.treatments.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Applications)
	assert.Zero(t, after.SuccessRate)
}

func TestDiagnosisService_ApplyConclusiveRatesTreatment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)
	tr := f.newTreatment(t)

	for _, r := range []string{domain.ResultWorked, domain.ResultDidNotWork, domain.ResultWorked} {
		require.NoError(t, f.svc.ApplyTreatment(ctx, stranger, d.ID, tr.ID, r))
	}

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Treatments, 3)

	after, err := f.treatments.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.Applications)
	assert.Equal(t, 67, after.SuccessRate)
}

func TestDiagnosisService_ApplyMissingTreatmentKeepsApplication(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)

	err := f.svc.ApplyTreatment(ctx, owner, d.ID, "deleted-treatment", domain.ResultWorked)
	assert.ErrorIs(t, err, tdomain.ErrTreatmentNotFound)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Treatments, 1)
	assert.Equal(t, "deleted-treatment", got.Treatments[0].TreatmentID)
	assert.Equal(t, domain.ResultWorked, got.Treatments[0].Result)
}

func TestDiagnosisService_ApplyRatingFailureIsNotRolledBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.newDiagnosis(t)

	rater := &failingRater{}
	f.svc.rater = rater

	err := f.svc.ApplyTreatment(ctx, owner, d.ID, "t1", domain.ResultDidNotWork)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.Status(err))
	assert.Equal(t, 1, rater.calls)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Treatments, 1)
}

func TestDiagnosisService_ApplyToMissingDiagnosisSkipsRating(t *testing.T) {
	f := setup(t)
	rater := &failingRater{}
	f.svc.rater = rater

	err := f.svc.ApplyTreatment(context.Background(), owner, "missing", "t1", domain.ResultWorked)
	assert.ErrorIs(t, err, domain.ErrDiagnosisNotFound)
	assert.Zero(t, rater.calls)
}
