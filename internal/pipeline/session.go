package pipeline

import "sync"

// Snapshot is a point-in-time view of a Session.
type Snapshot struct {
	Processing bool   `json:"processing"`
	Phase      State  `json:"phase"`
	StatusText string `json:"statusText"`
	RecordID   string `json:"recordId,omitempty"`
	FailedKind Kind   `json:"failureKind,omitempty"`
}

// Session is the observable progress state of the current run. It doubles as
// the single-run guard: Begin fails while a run is active.
type Session struct {
	mu        sync.Mutex
	snap      Snapshot
	observers []func(Snapshot)
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Observe registers fn to be called after every change.
func (s *Session) Observe(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Begin marks a run as started. It returns false if one is already active.
func (s *Session) Begin() bool {
	s.mu.Lock()
	if s.snap.Processing {
		s.mu.Unlock()
		return false
	}
	s.snap = Snapshot{Processing: true, Phase: StateIdle}
	snap, observers := s.snap, s.observers
	s.mu.Unlock()
	notify(observers, snap)
	return true
}

// Set records the phase being attempted.
func (s *Session) Set(phase State) {
	s.mu.Lock()
	s.snap.Phase = phase
	s.snap.StatusText = phase.StatusText()
	snap, observers := s.snap, s.observers
	s.mu.Unlock()
	notify(observers, snap)
}

// End resets the session to idle. The status text keeps the outcome: the
// completion label on success, or the prefixed failure message.
func (s *Session) End(recordID string, failure *Failure) {
	s.mu.Lock()
	s.snap.Processing = false
	s.snap.Phase = StateIdle
	if failure != nil {
		s.snap.StatusText = failure.StatusText()
		s.snap.RecordID = ""
		s.snap.FailedKind = failure.Kind
	} else {
		s.snap.StatusText = StateDone.StatusText()
		s.snap.RecordID = recordID
		s.snap.FailedKind = ""
	}
	snap, observers := s.snap, s.observers
	s.mu.Unlock()
	notify(observers, snap)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
