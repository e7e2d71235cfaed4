package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RecordKeyPrefix namespaces records in the record store.
const RecordKeyPrefix = "resume:"

// Record is the persisted unit of work for one analysis request.
type Record struct {
	ID             string   `json:"id"`
	ResumePath     string   `json:"resumePath"`
	ImagePath      string   `json:"imagePath"`
	CompanyName    string   `json:"companyName"`
	JobTitle       string   `json:"jobTitle"`
	JobDescription string   `json:"jobDescription"`
	Feedback       Feedback `json:"feedback"`
}

// RecordKey returns the record store key for a record ID.
func RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// NewID returns a random (version 4) UUID string.
func NewID() string {
	return uuid.NewString()
}

// Marshal serializes the record without HTML escaping. Invalid UTF-8 in
// string fields is replaced with U+FFFD; callers validate input first.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode record id=%s: %w", r.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseRecord decodes a serialized record.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// Feedback holds the parsed feedback document in compact JSON form.
// The zero value means "no feedback yet" and serializes as "".
type Feedback json.RawMessage

// ParseFeedback validates text as JSON and returns its compact form.
func ParseFeedback(text string) (Feedback, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("empty feedback document")
	}
	return Feedback(buf.Bytes()), nil
}

// IsEmpty reports whether feedback has not been set.
func (f Feedback) IsEmpty() bool {
	return len(f) == 0
}

// Decode unmarshals the feedback document into v.
func (f Feedback) Decode(v any) error {
	if f.IsEmpty() {
		return fmt.Errorf("feedback is empty")
	}
	return json.Unmarshal(f, v)
}

// MarshalJSON implements json.Marshaler.
func (f Feedback) MarshalJSON() ([]byte, error) {
	if f.IsEmpty() {
		return []byte(`""`), nil
	}
	return []byte(f), nil
}

// UnmarshalJSON implements json.Unmarshaler. Both "" and null decode to empty.
func (f *Feedback) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}
	*f = append(Feedback(nil), trimmed...)
	return nil
}
