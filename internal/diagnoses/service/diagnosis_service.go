package service

import (
	"context"
	"strings"
	"time"

	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/diagnoses/repository"
	"github.com/leafit/leafit-backend/internal/observability"
	"github.com/leafit/leafit-backend/internal/platform/access"
	"github.com/leafit/leafit-backend/internal/platform/apperr"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	tdomain "github.com/leafit/leafit-backend/internal/treatments/domain"
)

// TreatmentRater folds a conclusive outcome into a treatment's track record.
type TreatmentRater interface {
	Rate(ctx context.Context, treatmentID string, succeeded bool) (*tdomain.Treatment, error)
}

// DiagnosisService handles business logic for diagnoses and the treatment
// applications logged against them.
type DiagnosisService struct {
	repo    *repository.DiagnosisRepository
	rater   TreatmentRater
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewDiagnosisService creates a new DiagnosisService
func NewDiagnosisService(repo *repository.DiagnosisRepository, rater TreatmentRater, metrics *observability.Metrics, log *logger.Logger) *DiagnosisService {
	if log == nil {
		log = logger.Nop()
	}
	return &DiagnosisService{
		repo:    repo,
		rater:   rater,
		metrics: metrics,
		log:     log.With("service", "diagnoses"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new ongoing diagnosis owned by actor.
func (s *DiagnosisService) Create(ctx context.Context, actor access.Actor, req domain.CreateDiagnosisRequest) (*domain.Diagnosis, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated("Authentication required")
	}

	plant := strings.TrimSpace(req.PlantName)
	symptoms := strings.TrimSpace(req.Symptoms)
	if plant == "" || symptoms == "" {
		return nil, domain.ErrMissingFields
	}

	now := s.now()
	d := &domain.Diagnosis{
		UserID:      actor.UserID,
		Username:    actor.Username,
		PlantName:   plant,
		Symptoms:    symptoms,
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusOngoing,
		Treatments:  []domain.Application{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("create diagnosis failed", "user_id", actor.UserID, "error", err)
		return nil, err
	}

	s.log.Info("diagnosis created", "diagnosis_id", d.ID, "user_id", actor.UserID)
	return d, nil
}

// Get retrieves a diagnosis by its ID
func (s *DiagnosisService) Get(ctx context.Context, id string) (*domain.Diagnosis, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DiagnosisService) List(ctx context.Context, f domain.ListFilter) ([]*domain.Diagnosis, error) {
	return s.repo.List(ctx, f)
}

// Update applies the owner's edits. The application list is never edited here.
func (s *DiagnosisService) Update(ctx context.Context, actor access.Actor, id string, req domain.UpdateDiagnosisRequest) (*domain.Diagnosis, error) {
	if req.Status != nil {
		if st := strings.TrimSpace(*req.Status); st != "" && !domain.IsValidStatus(st) {
			return nil, domain.ErrInvalidStatus
		}
	}

	return s.repo.Update(ctx, id, func(d *domain.Diagnosis) error {
		if err := access.RequireOwner(d.UserID, actor.UserID); err != nil {
			return err
		}
		if req.Symptoms != nil {
			if v := strings.TrimSpace(*req.Symptoms); v != "" {
				d.Symptoms = v
			}
		}
		if req.Status != nil {
			if v := strings.TrimSpace(*req.Status); v != "" {
				d.Status = v
			}
		}
		if req.Description != nil {
			d.Description = strings.TrimSpace(*req.Description)
		}
		if req.PhotoURL != nil {
			d.PhotoURL = strings.TrimSpace(*req.PhotoURL)
		}
		d.UpdatedAt = s.now()
		return nil
	})
}

func (s *DiagnosisService) Delete(ctx context.Context, actor access.Actor, id string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(d.UserID, actor.UserID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("diagnosis deleted", "diagnosis_id", id, "user_id", actor.UserID)
	return nil
}

// RecordApplication appends an application of treatmentID to the diagnosis.
// Any authenticated user may do this, and the treatment is not looked up.
// An empty result is recorded as testing.
func (s *DiagnosisService) RecordApplication(ctx context.Context, actor access.Actor, diagnosisID, treatmentID, result string) error {
	if !actor.Authenticated() {
		return apperr.Unauthenticated("Authentication required")
	}
	treatmentID = strings.TrimSpace(treatmentID)
	if treatmentID == "" {
		return domain.ErrMissingTreatmentID
	}
	if result == "" {
		result = domain.ResultTesting
	}
	if !domain.IsValidResult(result) {
		return domain.ErrInvalidResult
	}

	now := s.now()
	app := domain.Application{
		TreatmentID: treatmentID,
		AppliedBy:   actor.Username,
		AppliedAt:   now,
		Result:      result,
	}
	if err := s.repo.AppendApplication(ctx, diagnosisID, app, now); err != nil {
		return err
	}

	s.metrics.ApplicationRecorded(result)
	return nil
}

// ApplyTreatment records the application and, for a conclusive result, rates
// the treatment. The two writes are independent: when rating fails the
// application stays recorded and the rating error is returned.
func (s *DiagnosisService) ApplyTreatment(ctx context.Context, actor access.Actor, diagnosisID, treatmentID, result string) error {
	if result == "" {
		result = domain.ResultTesting
	}
	if err := s.RecordApplication(ctx, actor, diagnosisID, treatmentID, result); err != nil {
		return err
	}
	if !domain.IsConclusive(result) {
		return nil
	}

	if _, err := s.rater.Rate(ctx, strings.TrimSpace(treatmentID), result == domain.ResultWorked); err != nil {
		s.log.Warn("application recorded but rating failed",
			"diagnosis_id", diagnosisID,
			"treatment_id", treatmentID,
			"result", result,
			"error", err,
		)
		return err
	}
	return nil
}

// Watch subscribes to change events for one diagnosis.
func (s *DiagnosisService) Watch(ctx context.Context, id string) (<-chan domain.Event, func(), error) {
	return s.repo.Watch(ctx, id)
}
