package pipeline

import "fmt"

// State is one phase of a run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateUploadingResume
	StateConvertingToImage
	StateUploadingImage
	StatePersistingDraft
	StateAnalyzing
	StatePersistingFinal
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateValidating:        "validating",
	StateUploadingResume:   "uploading_resume",
	StateConvertingToImage: "converting_to_image",
	StateUploadingImage:    "uploading_image",
	StatePersistingDraft:   "persisting_draft",
	StateAnalyzing:         "analyzing",
	StatePersistingFinal:   "persisting_final",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusText is the progress label shown while the state is active.
func (s State) StatusText() string {
	switch s {
	case StateValidating:
		return "Checking your file..."
	case StateUploadingResume:
		return "Uploading the file..."
	case StateConvertingToImage:
		return "Converting to image..."
	case StateUploadingImage:
		return "Uploading the image..."
	case StatePersistingDraft:
		return "Preparing data..."
	case StateAnalyzing:
		return "Analyzing..."
	case StatePersistingFinal:
		return "Saving feedback..."
	case StateDone:
		return "Analysis complete, redirecting..."
	default:
		return ""
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next returns the successor in the fixed forward order.
func (s State) next() State {
	switch s {
	case StateIdle:
		return StateValidating
	case StateValidating:
		return StateUploadingResume
	case StateUploadingResume:
		return StateConvertingToImage
	case StateConvertingToImage:
		return StateUploadingImage
	case StateUploadingImage:
		return StatePersistingDraft
	case StatePersistingDraft:
		return StateAnalyzing
	case StateAnalyzing:
		return StatePersistingFinal
	case StatePersistingFinal:
		return StateDone
	default:
		return StateFailed
	}
}
