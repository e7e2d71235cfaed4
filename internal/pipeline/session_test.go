package pipeline

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestSessionBeginIsExclusive(t *testing.T) {
	s := NewSession()
	if !s.Begin() {
		t.Fatalf("expected first Begin to succeed")
	}
	if s.Begin() {
		t.Fatalf("expected second Begin to fail while processing")
	}
	s.End("id-1", nil)
	if !s.Begin() {
		t.Fatalf("expected Begin to succeed after End")
	}
}

func TestSessionBeginConcurrent(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestSessionEndWithFailure(t *testing.T) {
	s := NewSession()
	s.Begin()
	s.Set(StateUploadingImage)
	s.End("", &Failure{Kind: KindUploadFailed, Stage: StageImage})

	snap := s.Snapshot()
	if snap.Processing || snap.Phase != StateIdle {
		t.Fatalf("expected idle, got %+v", snap)
	}
	if snap.StatusText != "Error: Failed to upload image" {
		t.Fatalf("unexpected status text %q", snap.StatusText)
	}
	if snap.FailedKind != KindUploadFailed || snap.RecordID != "" {
		t.Fatalf("unexpected failure fields: %+v", snap)
	}
}

func TestSessionBeginClearsPreviousOutcome(t *testing.T) {
	s := NewSession()
	s.Begin()
	s.End("", &Failure{Kind: KindFeedbackMalformed})
	s.Begin()

	snap := s.Snapshot()
	if snap.StatusText != "" || snap.FailedKind != "" {
		t.Fatalf("expected cleared outcome, got %+v", snap)
	}
}

func TestSnapshotJSON(t *testing.T) {
	s := NewSession()
	s.Begin()
	s.Set(StateAnalyzing)

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"phase":"analyzing"`) || !strings.Contains(got, `"processing":true`) {
		t.Fatalf("unexpected snapshot JSON: %s", got)
	}
}

func TestFailureMessages(t *testing.T) {
	tests := []struct {
		failure Failure
		want    string
	}{
		{Failure{Kind: KindUnauthenticated}, "Please sign in to analyze your resume"},
		{Failure{Kind: KindInvalidFileType}, "Please upload a PDF file"},
		{Failure{Kind: KindUploadFailed, Stage: StageResume}, "Failed to upload file"},
		{Failure{Kind: KindConversionFailed}, "Failed to convert PDF to image"},
		{Failure{Kind: KindEmptyArtifact}, "Converted image is empty"},
		{Failure{Kind: KindFeedbackUnavailable}, "Failed to analyze resume"},
		{Failure{Kind: KindFeedbackMalformed}, "Received malformed feedback"},
		{Failure{Kind: KindUnexpected, Stage: StageFinal}, "Unexpected error while saving the feedback"},
	}
	for _, tt := range tests {
		if got := tt.failure.Message(); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.failure.Kind, tt.want, got)
		}
		if !strings.HasPrefix(tt.failure.StatusText(), FailurePrefix) {
			t.Fatalf("%s: status text missing prefix", tt.failure.Kind)
		}
	}
}

func TestStateOrder(t *testing.T) {
	var got []State
	for s := StateIdle.next(); !s.Terminal(); s = s.next() {
		got = append(got, s)
	}
	want := []State{
		StateValidating, StateUploadingResume, StateConvertingToImage, StateUploadingImage,
		StatePersistingDraft, StateAnalyzing, StatePersistingFinal,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d states, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("state %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
