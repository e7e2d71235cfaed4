package resumes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/storage/kv"
	"resume-feedback/internal/shared/telemetry"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("resume record not found")

const (
	// DefaultSessionTTL is how long a finished session stays readable.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions caps retained sessions; the longest idle go first.
	DefaultMaxSessions = 10000
)

// Service runs the pipeline on behalf of callers. An owner gets a
// Controller with its own Session, built from the Pipeline template, when it
// starts a run. Idle sessions are dropped SessionTTL after their last run.
type Service struct {
	Pipeline    pipeline.Controller
	Records     kv.Store
	SessionTTL  time.Duration
	MaxSessions int
	// Now overrides the eviction clock in tests.
	Now func() time.Time

	mu          sync.Mutex
	controllers map[string]*ownerSession
}

type ownerSession struct {
	ctrl    *pipeline.Controller
	running bool
	idleAt  time.Time
}

// NewService returns a Service that clones template per owner.
func NewService(template pipeline.Controller, records kv.Store) *Service {
	return &Service{
		Pipeline:    template,
		Records:     records,
		SessionTTL:  DefaultSessionTTL,
		MaxSessions: DefaultMaxSessions,
	}
}

// Start launches a run for owner in the background. It returns
// pipeline.ErrBusy when owner already has an active run.
func (s *Service) Start(ctx context.Context, owner string, req pipeline.AnalysisRequest) error {
	ctrl, err := s.acquire(owner)
	if err != nil {
		return err
	}
	go func() {
		defer s.release(owner)
		id, err := ctrl.Analyze(pipeline.DetachContext(ctx), req)
		if err != nil {
			telemetry.Warn("resumes.run_failed", map[string]any{
				"request_id": pipeline.RequestIDFrom(ctx),
				"user_id":    owner,
				"error":      err.Error(),
			})
			return
		}
		telemetry.Info("resumes.run_completed", map[string]any{
			"request_id": pipeline.RequestIDFrom(ctx),
			"user_id":    owner,
			"record_id":  id,
		})
	}()
	return nil
}

// Run executes a run for owner and waits for its result.
func (s *Service) Run(ctx context.Context, owner string, req pipeline.AnalysisRequest) (string, error) {
	ctrl, err := s.acquire(owner)
	if err != nil {
		return "", err
	}
	defer s.release(owner)
	return ctrl.Analyze(ctx, req)
}

// Session returns the snapshot of owner's session, or an idle snapshot when
// owner has no live session.
func (s *Service) Session(owner string) pipeline.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	entry, ok := s.controllers[owner]
	if !ok {
		return pipeline.Snapshot{Phase: pipeline.StateIdle}
	}
	return entry.ctrl.Session.Snapshot()
}

// Get loads a stored record by ID.
func (s *Service) Get(ctx context.Context, id string) (pipeline.Record, error) {
	value, err := s.Records.Get(ctx, pipeline.RecordKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return pipeline.Record{}, ErrNotFound
		}
		return pipeline.Record{}, err
	}
	return pipeline.ParseRecord([]byte(value))
}

// List loads every stored record. Entries that fail to parse are skipped.
func (s *Service) List(ctx context.Context) ([]pipeline.Record, error) {
	entries, err := s.Records.List(ctx, pipeline.RecordKey(""))
	if err != nil {
		return nil, err
	}
	records := make([]pipeline.Record, 0, len(entries))
	for _, entry := range entries {
		rec, err := pipeline.ParseRecord([]byte(entry.Value))
		if err != nil {
			telemetry.Warn("resumes.record_unreadable", map[string]any{
				"key":   entry.Key,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Service) acquire(owner string) (*pipeline.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	if s.controllers == nil {
		s.controllers = make(map[string]*ownerSession)
	}
	entry, ok := s.controllers[owner]
	if !ok {
		s.shrinkLocked()
		clone := s.Pipeline
		clone.Session = pipeline.NewSession()
		entry = &ownerSession{ctrl: &clone}
		s.controllers[owner] = entry
	}
	if entry.running {
		return nil, pipeline.ErrBusy
	}
	entry.running = true
	return entry.ctrl, nil
}

func (s *Service) release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.controllers[owner]; ok {
		entry.running = false
		entry.idleAt = s.now()
	}
}

// evictLocked drops sessions that have been idle longer than SessionTTL.
func (s *Service) evictLocked() {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cutoff := s.now().Add(-ttl)
	for owner, entry := range s.controllers {
		if !entry.running && entry.idleAt.Before(cutoff) {
			delete(s.controllers, owner)
		}
	}
}

// shrinkLocked makes room for one more session by dropping the longest idle
// ones. Running sessions are never dropped.
func (s *Service) shrinkLocked() {
	limit := s.MaxSessions
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if len(s.controllers) < limit {
		return
	}
	idle := make([]string, 0, len(s.controllers))
	for owner, entry := range s.controllers {
		if !entry.running {
			idle = append(idle, owner)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return s.controllers[idle[i]].idleAt.Before(s.controllers[idle[j]].idleAt)
	})
	for _, owner := range idle {
		if len(s.controllers) < limit {
			return
		}
		delete(s.controllers, owner)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
