package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/platform/docstore"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

const collectionName = "diagnoses"

// DiagnosisRepository keeps diagnoses as JSON documents in Redis and
// publishes a change event after every committed write.
type DiagnosisRepository struct {
	docs *docstore.Collection[domain.Diagnosis]
	log  *logger.Logger
}

// NewDiagnosisRepository creates a new DiagnosisRepository. A nil log discards.
func NewDiagnosisRepository(client *redis.Client, prefix string, log *logger.Logger, opts ...docstore.Option) *DiagnosisRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &DiagnosisRepository{
		docs: docstore.NewCollection[domain.Diagnosis](client, prefix, collectionName, opts...),
		log:  log.With("repository", collectionName),
	}
}

func (r *DiagnosisRepository) Create(ctx context.Context, d *domain.Diagnosis) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if d.Treatments == nil {
		d.Treatments = []domain.Application{}
	}
	return r.docs.Create(ctx, d.ID, d, d.CreatedAt)
}

func (r *DiagnosisRepository) GetByID(ctx context.Context, id string) (*domain.Diagnosis, error) {
	d, err := r.docs.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

// List returns diagnoses matching f, newest first.
func (r *DiagnosisRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Diagnosis, error) {
	return r.docs.List(ctx, matcher(f))
}

// Update runs mutate atomically against the stored diagnosis.
func (r *DiagnosisRepository) Update(ctx context.Context, id string, mutate func(*domain.Diagnosis) error) (*domain.Diagnosis, error) {
	d, err := r.docs.Update(ctx, id, mutate)
	if err != nil {
		return nil, translate(err)
	}
	r.publish(ctx, domain.Event{Type: domain.EventUpdated, ID: id, Diagnosis: d})
	return d, nil
}

// AppendApplication adds app to the end of the diagnosis' application list
// and sets UpdatedAt to at.
func (r *DiagnosisRepository) AppendApplication(ctx context.Context, id string, app domain.Application, at time.Time) error {
	_, err := r.Update(ctx, id, func(d *domain.Diagnosis) error {
		d.Treatments = append(d.Treatments, app)
		d.UpdatedAt = at
		return nil
	})
	return err
}

func (r *DiagnosisRepository) Delete(ctx context.Context, id string) error {
	if err := r.docs.Delete(ctx, id); err != nil {
		return translate(err)
	}
	r.publish(ctx, domain.Event{Type: domain.EventDeleted, ID: id})
	return nil
}

func (r *DiagnosisRepository) Count(ctx context.Context) (int64, error) {
	return r.docs.Count(ctx)
}

// Watch streams change events for one diagnosis until ctx ends or stop is
// called. The subscription is confirmed before Watch returns, so writes made
// afterwards are never missed.
func (r *DiagnosisRepository) Watch(ctx context.Context, id string) (<-chan domain.Event, func(), error) {
	sub := r.docs.Subscribe(ctx, id)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan domain.Event, 8)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					r.log.Warn("dropping malformed diagnosis event", "diagnosis_id", id, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// publish is best effort: the write is already committed, so a failure only
// means live watchers miss this change.
func (r *DiagnosisRepository) publish(ctx context.Context, ev domain.Event) {
	if err := r.docs.Publish(ctx, ev.ID, ev); err != nil {
		r.log.Warn("publish diagnosis event failed", "diagnosis_id", ev.ID, "event", ev.Type, "error", err)
	}
}

func matcher(f domain.ListFilter) func(*domain.Diagnosis) bool {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.TrimSpace(f.Status)
	species := strings.ToLower(strings.TrimSpace(f.PlantSpecies))

	return func(d *domain.Diagnosis) bool {
		plant := strings.ToLower(d.PlantName)
		if search != "" &&
			!strings.Contains(plant, search) &&
			!strings.Contains(strings.ToLower(d.Symptoms), search) {
			return false
		}
		if status != "" && d.Status != status {
			return false
		}
		if species != "" && !strings.Contains(plant, species) {
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
		return domain.ErrDiagnosisNotFound
	case errors.Is(err, docstore.ErrConflict):
		return domain.ErrDiagnosisContention
	default:
		return err
	}
}
