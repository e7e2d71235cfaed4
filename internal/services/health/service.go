package health

import (
	"context"
	"errors"
	"time"

	"resume-feedback/internal/shared/storage/kv"
)

const probeKey = "health:probe"

// Service reports whether the record store is reachable.
type Service struct {
	Records kv.Store
	Timeout time.Duration
}

// NewService constructs a new health service.
func NewService(records kv.Store) *Service {
	return &Service{Records: records, Timeout: 2 * time.Second}
}

// Status returns a health payload and whether every check passed. A missing
// probe key counts as reachable.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s == nil || s.Records == nil {
		return map[string]any{"ok": true}, true
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.Records.Get(ctx, probeKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return map[string]any{"ok": false, "recordStore": err.Error()}, false
	}
	return map[string]any{"ok": true, "recordStore": "ok"}, true
}
