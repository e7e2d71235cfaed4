package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a run is already active for the session.
var ErrBusy = errors.New("pipeline: run already in progress")

// FailurePrefix marks terminal status text so it cannot be confused with an
// in-progress phase label.
const FailurePrefix = "Error: "

// Kind classifies why a run failed.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindInvalidFileType     Kind = "invalid_file_type"
	KindUploadFailed        Kind = "upload_failed"
	KindConversionFailed    Kind = "conversion_failed"
	KindEmptyArtifact       Kind = "empty_artifact"
	KindFeedbackUnavailable Kind = "feedback_unavailable"
	KindFeedbackMalformed   Kind = "feedback_malformed"
	KindUnexpected          Kind = "unexpected_error"
)

// Stages attached to failures that can happen at more than one point.
const (
	StageResume = "resume"
	StageImage  = "image"
	StageDraft  = "draft"
	StageFinal  = "final"
)

var (
	errNoHandle     = errors.New("blob store returned no handle")
	errNoImage      = errors.New("rasterizer produced no image")
	errNoResponse   = errors.New("feedback service returned no response")
	errEmptyContent = errors.New("feedback response has no text content")
)

// Failure is the terminal error of a run.
type Failure struct {
	Kind  Kind
	Stage string
	Cause error
}

func (f *Failure) Error() string {
	msg := "pipeline: " + string(f.Kind)
	if f.Stage != "" {
		msg += " stage=" + f.Stage
	}
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Cause }

// Message returns the human-readable reason shown to the operator.
func (f *Failure) Message() string {
	switch f.Kind {
	case KindUnauthenticated:
		return "Please sign in to analyze your resume"
	case KindInvalidFileType:
		return "Please upload a PDF file"
	case KindUploadFailed:
		if f.Stage == StageImage {
			return "Failed to upload image"
		}
		return "Failed to upload file"
	case KindConversionFailed:
		return "Failed to convert PDF to image"
	case KindEmptyArtifact:
		return "Converted image is empty"
	case KindFeedbackUnavailable:
		return "Failed to analyze resume"
	case KindFeedbackMalformed:
		return "Received malformed feedback"
	default:
		if f.Stage != "" {
			return fmt.Sprintf("Unexpected error while %s", stageVerb(f.Stage))
		}
		return "Unexpected error"
	}
}

// StatusText is the session text for a failed run.
func (f *Failure) StatusText() string {
	return FailurePrefix + f.Message()
}

// KindOf returns the failure kind carried by err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func stageVerb(stage string) string {
	switch stage {
	case StageDraft:
		return "saving the draft"
	case StageFinal:
		return "saving the feedback"
	default:
		return stage
	}
}

func asFailure(state State, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindUnexpected, Stage: state.String(), Cause: err}
}
