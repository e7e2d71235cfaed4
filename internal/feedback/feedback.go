package feedback

import (
	"context"
	"errors"

	"resume-feedback/internal/pipeline"
)

// ErrNotConfigured is returned by Placeholder.
var ErrNotConfigured = errors.New("feedback provider not configured")

// Placeholder is used when no provider is configured. Every run it serves
// fails as feedback unavailable.
type Placeholder struct{}

// Feedback returns ErrNotConfigured.
func (Placeholder) Feedback(ctx context.Context, resumePath, instructions string) (*pipeline.Response, error) {
	_ = ctx
	_ = resumePath
	_ = instructions
	return nil, ErrNotConfigured
}

var _ pipeline.FeedbackService = Placeholder{}
