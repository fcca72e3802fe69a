// Package stats maintains the community dashboard counters. A snapshot is
// computed from the diagnosis and treatment stores, cached in Redis, and
// refreshed on a cron schedule.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	ddomain "github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/observability"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	tdomain "github.com/leafit/leafit-backend/internal/treatments/domain"
)

const topTreatmentsLimit = 5

type Snapshot struct {
	Diagnoses     int            `json:"diagnoses"`
	Ongoing       int            `json:"ongoing"`
	Resolved      int            `json:"resolved"`
	Testing       int            `json:"testing"`
	Treatments    int            `json:"treatments"`
	Applications  int            `json:"applications"`
	Members       int64          `json:"members"`
	TopTreatments []TopTreatment `json:"topTreatments"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

type TopTreatment struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	SuccessRate  int    `json:"successRate"`
	Applications int    `json:"applications"`
}

type DiagnosisLister interface {
	List(ctx context.Context, f ddomain.ListFilter) ([]*ddomain.Diagnosis, error)
}

type TreatmentLister interface {
	List(ctx context.Context, f tdomain.ListFilter) ([]*tdomain.Treatment, error)
}

// MemberCounter reports registered users. Optional.
type MemberCounter interface {
	CountMembers(ctx context.Context) (int64, error)
}

type Service struct {
	client     *redis.Client
	key        string
	diagnoses  DiagnosisLister
	treatments TreatmentLister
	members    MemberCounter
	metrics    *observability.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewService(client *redis.Client, prefix string, diagnoses DiagnosisLister, treatments TreatmentLister, members MemberCounter, metrics *observability.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		client:     client,
		key:        fmt.Sprintf("%s:stats:snapshot", prefix),
		diagnoses:  diagnoses,
		treatments: treatments,
		members:    members,
		metrics:    metrics,
		log:        log.With("service", "stats"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Refresh recomputes the snapshot and caches it.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.compute(ctx)
	if err == nil {
		err = s.save(ctx, snap)
	}
	s.metrics.StatsRefreshed(err)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Current returns the cached snapshot, computing one if none exists yet.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return s.Refresh(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("discarding unreadable stats snapshot", "error", err)
		return s.Refresh(ctx)
	}
	return &snap, nil
}

func (s *Service) compute(ctx context.Context) (*Snapshot, error) {
	diagnoses, err := s.diagnoses.List(ctx, ddomain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	treatments, err := s.treatments.List(ctx, tdomain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}

	snap := &Snapshot{
		Diagnoses:     len(diagnoses),
		Treatments:    len(treatments),
		TopTreatments: []TopTreatment{},
		GeneratedAt:   s.now(),
	}
	for _, d := range diagnoses {
		switch d.Status {
		case ddomain.StatusOngoing:
			snap.Ongoing++
		case ddomain.StatusResolved:
			snap.Resolved++
		case ddomain.StatusTesting:
			snap.Testing++
		}
		snap.Applications += len(d.Treatments)
	}

	rated := make([]*tdomain.Treatment, 0, len(treatments))
	for _, t := range treatments {
		if t.Applications > 0 {
			rated = append(rated, t)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].SuccessRate != rated[j].SuccessRate {
			return rated[i].SuccessRate > rated[j].SuccessRate
		}
		return rated[i].Applications > rated[j].Applications
	})
	for _, t := range rated[:min(len(rated), topTreatmentsLimit)] {
		snap.TopTreatments = append(snap.TopTreatments, TopTreatment{
			ID:           t.ID,
			Name:         t.Name,
			Type:         t.Type,
			SuccessRate:  t.SuccessRate,
			Applications: t.Applications,
		})
	}

	if s.members != nil {
		n, err := s.members.CountMembers(ctx)
		if err != nil {
			// the dashboard still renders without a member count
			s.log.Warn("count members failed", "error", err)
		} else {
			snap.Members = n
		}
	}
	return snap, nil
}

func (s *Service) save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store stats: %w", err)
	}
	return nil
}
