package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// File is a named binary with its declared media type.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// AnalysisRequest is the caller-supplied input for one run.
type AnalysisRequest struct {
	CompanyName    string
	JobTitle       string
	JobDescription string
	File           File
}

// AuthGate reports whether the acting user is authenticated.
type AuthGate interface {
	IsAuthenticated(ctx context.Context) bool
}

// BlobStore stores binaries and returns a stable handle.
type BlobStore interface {
	Upload(ctx context.Context, file File) (string, error)
}

// Conversion is the outcome of rasterizing a PDF. A nil Image means no image
// was produced; Err carries the reason.
type Conversion struct {
	Image *File
	Err   string
}

// Rasterizer renders the first page of a PDF. Implementations never return
// errors; failure is reported in the Conversion.
type Rasterizer interface {
	Convert(ctx context.Context, pdf File) Conversion
}

// RecordStore persists serialized records by key.
type RecordStore interface {
	Set(ctx context.Context, key, value string) error
}

// FeedbackService generates feedback for a stored resume. A nil response with
// a nil error means the service produced nothing.
type FeedbackService interface {
	Feedback(ctx context.Context, resumePath, instructions string) (*Response, error)
}

// FeedbackValidator optionally checks parsed feedback against a contract.
type FeedbackValidator interface {
	Validate(feedback Feedback) error
}

// InstructionsFunc builds the opaque instruction payload for the feedback service.
type InstructionsFunc func(jobTitle, jobDescription string) string

// Response is the feedback service reply.
type Response struct {
	Message Message `json:"message"`
}

// Message holds the model output.
type Message struct {
	Role    string  `json:"role,omitempty"`
	Content Content `json:"content"`
}

// ContentKind tags the shape of message content.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentText
	ContentBlocks
)

// Block is one typed content block.
type Block struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Content is either a plain string or a sequence of blocks.
type Content struct {
	kind   ContentKind
	text   string
	blocks []Block
}

// TextContent returns string-shaped content.
func TextContent(text string) Content {
	return Content{kind: ContentText, text: text}
}

// BlockContent returns block-shaped content.
func BlockContent(blocks ...Block) Content {
	return Content{kind: ContentBlocks, blocks: blocks}
}

// Kind returns the content shape.
func (c Content) Kind() ContentKind { return c.kind }

// Text extracts the text to parse: the string itself, or the first block's
// text. It reports false when there is no non-blank text.
func (c Content) Text() (string, bool) {
	var text string
	switch c.kind {
	case ContentText:
		text = c.text
	case ContentBlocks:
		if len(c.blocks) == 0 {
			return "", false
		}
		text = c.blocks[0].Text
	default:
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case ContentText:
		return json.Marshal(c.text)
	case ContentBlocks:
		if c.blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.blocks)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	case '[':
		var blocks []Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return err
		}
		*c = BlockContent(blocks...)
		return nil
	default:
		return fmt.Errorf("unsupported content shape %q", trimmed[0])
	}
}
