package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leafit/leafit-backend/internal/platform/docstore"
	"github.com/leafit/leafit-backend/internal/treatments/domain"
	"github.com/redis/go-redis/v9"
)

const collectionName = "treatments"

// TreatmentRepository keeps treatments as JSON documents in Redis.
type TreatmentRepository struct {
	docs *docstore.Collection[domain.Treatment]
}

// NewTreatmentRepository creates a new TreatmentRepository
func NewTreatmentRepository(client *redis.Client, prefix string, opts ...docstore.Option) *TreatmentRepository {
	return &TreatmentRepository{
		docs: docstore.NewCollection[domain.Treatment](client, prefix, collectionName, opts...),
	}
}

// Create assigns an ID and timestamps when missing and stores the treatment.
func (r *TreatmentRepository) Create(ctx context.Context, t *domain.Treatment) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Ingredients == nil {
		t.Ingredients = []string{}
	}
	return r.docs.Create(ctx, t.ID, t, t.CreatedAt)
}

func (r *TreatmentRepository) GetByID(ctx context.Context, id string) (*domain.Treatment, error) {
	t, err := r.docs.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// List applies f and orders by success rate, newest first within equal rates.
func (r *TreatmentRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Treatment, error) {
	items, err := r.docs.List(ctx, matcher(f))
	if err != nil {
		return nil, err
	}

	// docs come back newest first; a stable sort keeps that as the tiebreaker
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SuccessRate > items[j].SuccessRate
	})
	return items, nil
}

// Update runs mutate atomically against the stored treatment.
func (r *TreatmentRepository) Update(ctx context.Context, id string, mutate func(*domain.Treatment) error) (*domain.Treatment, error) {
	t, err := r.docs.Update(ctx, id, mutate)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (r *TreatmentRepository) Delete(ctx context.Context, id string) error {
	return translate(r.docs.Delete(ctx, id))
}

func (r *TreatmentRepository) Count(ctx context.Context) (int64, error) {
	return r.docs.Count(ctx)
}

func matcher(f domain.ListFilter) func(*domain.Treatment) bool {
	typ := strings.TrimSpace(f.Type)
	problem := strings.ToLower(strings.TrimSpace(f.Problem))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	return func(t *domain.Treatment) bool {
		if typ != "" && t.Type != typ {
			return false
		}
		if problem != "" && !strings.Contains(strings.ToLower(t.ProblemsSolved), problem) {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.ProblemsSolved), search) {
			return false
		}
		return true
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return domain.ErrTreatmentNotFound
	case errors.Is(err, docstore.ErrConflict):
		return domain.ErrRatingContention
	default:
		return err
	}
}
