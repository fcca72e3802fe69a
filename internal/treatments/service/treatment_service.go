package service

import (
	"context"
	"strings"
	"time"

	"github.com/leafit/leafit-backend/internal/observability"
	"github.com/leafit/leafit-backend/internal/platform/access"
	"github.com/leafit/leafit-backend/internal/platform/apperr"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/treatments/domain"
	"github.com/leafit/leafit-backend/internal/treatments/repository"
)

// TreatmentService handles business logic for treatments
type TreatmentService struct {
	repo    *repository.TreatmentRepository
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewTreatmentService creates a new TreatmentService
func NewTreatmentService(repo *repository.TreatmentRepository, metrics *observability.Metrics, log *logger.Logger) *TreatmentService {
	if log == nil {
		log = logger.Nop()
	}
	return &TreatmentService{
		repo:    repo,
		metrics: metrics,
		log:     log.With("service", "treatments"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new treatment owned by actor with an empty track record.
func (s *TreatmentService) Create(ctx context.Context, actor access.Actor, req domain.CreateTreatmentRequest) (*domain.Treatment, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated("Authentication required")
	}

	name := strings.TrimSpace(req.Name)
	instructions := strings.TrimSpace(req.Instructions)
	typ := strings.TrimSpace(req.Type)
	problems := strings.TrimSpace(req.ProblemsSolved)
	if name == "" || instructions == "" || typ == "" || problems == "" {
		return nil, domain.ErrMissingFields
	}
	if !domain.IsValidType(typ) {
		return nil, domain.ErrInvalidType
	}

	now := s.now()
	t := &domain.Treatment{
		UserID:         actor.UserID,
		Username:       actor.Username,
		Name:           name,
		Instructions:   instructions,
		Type:           typ,
		ProblemsSolved: problems,
		Ingredients:    cleanIngredients(req.Ingredients),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		s.log.Error("create treatment failed", "user_id", actor.UserID, "error", err)
		return nil, err
	}

	s.log.Info("treatment created", "treatment_id", t.ID, "user_id", actor.UserID)
	return t, nil
}

// Get retrieves a treatment by its ID
func (s *TreatmentService) Get(ctx context.Context, id string) (*domain.Treatment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns treatments matching f, best track record first.
func (s *TreatmentService) List(ctx context.Context, f domain.ListFilter) ([]*domain.Treatment, error) {
	return s.repo.List(ctx, f)
}

// Update changes the owner-editable fields. The aggregate counters are never touched here.
func (s *TreatmentService) Update(ctx context.Context, actor access.Actor, id string, req domain.UpdateTreatmentRequest) (*domain.Treatment, error) {
	if req.Type != nil {
		if typ := strings.TrimSpace(*req.Type); typ != "" && !domain.IsValidType(typ) {
			return nil, domain.ErrInvalidType
		}
	}

	t, err := s.repo.Update(ctx, id, func(t *domain.Treatment) error {
		if err := access.RequireOwner(t.UserID, actor.UserID); err != nil {
			return err
		}
		if req.Instructions != nil {
			if v := strings.TrimSpace(*req.Instructions); v != "" {
				t.Instructions = v
			}
		}
		if req.Type != nil {
			if v := strings.TrimSpace(*req.Type); v != "" {
				t.Type = v
			}
		}
		if req.ProblemsSolved != nil {
			if v := strings.TrimSpace(*req.ProblemsSolved); v != "" {
				t.ProblemsSolved = v
			}
		}
		if req.Ingredients != nil {
			t.Ingredients = cleanIngredients(req.Ingredients)
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a treatment owned by actor. Applications referencing it are left dangling.
func (s *TreatmentService) Delete(ctx context.Context, actor access.Actor, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(t.UserID, actor.UserID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("treatment deleted", "treatment_id", id, "user_id", actor.UserID)
	return nil
}

// Rate folds one conclusive outcome into the treatment's aggregate. Any
// authenticated user may rate; ownership is not checked.
func (s *TreatmentService) Rate(ctx context.Context, id string, succeeded bool) (*domain.Treatment, error) {
	t, err := s.repo.Update(ctx, id, func(t *domain.Treatment) error {
		t.RecordOutcome(succeeded, s.now())
		return nil
	})
	if err != nil {
		if apperr.Status(err) >= 500 {
			s.log.Error("rate treatment failed", "treatment_id", id, "error", err)
		}
		return nil, err
	}

	s.metrics.RatingRecorded(succeeded)
	s.log.Debug("treatment rated",
		"treatment_id", id,
		"succeeded", succeeded,
		"applications", t.Applications,
		"success_rate", t.SuccessRate,
	)
	return t, nil
}

func cleanIngredients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
