package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type staticAuth bool

func (a staticAuth) IsAuthenticated(ctx context.Context) bool {
	_ = ctx
	return bool(a)
}

type fakeBlobs struct {
	mu    sync.Mutex
	calls []File
	// errs and paths are consumed per call; a missing entry means success.
	errs  []error
	paths []string
}

func (f *fakeBlobs) Upload(ctx context.Context, file File) (string, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.calls)
	f.calls = append(f.calls, file)
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.paths) {
		return f.paths[n], nil
	}
	return fmt.Sprintf("/blobs/%d/%s", n, file.Name), nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRasterizer struct {
	calls int
	conv  *Conversion
}

func (f *fakeRasterizer) Convert(ctx context.Context, pdf File) Conversion {
	_ = ctx
	f.calls++
	if f.conv != nil {
		return *f.conv
	}
	return Conversion{Image: &File{Name: "resume.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}}
}

type setCall struct {
	key   string
	value string
}

type fakeRecords struct {
	mu    sync.Mutex
	sets  []setCall
	errAt map[int]error
}

func (f *fakeRecords) Set(ctx context.Context, key, value string) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sets)
	if err := f.errAt[n]; err != nil {
		return err
	}
	f.sets = append(f.sets, setCall{key: key, value: value})
	return nil
}

func (f *fakeRecords) last(t *testing.T) Record {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sets) == 0 {
		t.Fatalf("expected at least one record write")
	}
	rec, err := ParseRecord([]byte(f.sets[len(f.sets)-1].value))
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	return rec
}

type fakeFeedback struct {
	resp        *Response
	err         error
	calls       int
	gotPath     string
	gotPayload  string
	beforeReply func()
}

func (f *fakeFeedback) Feedback(ctx context.Context, resumePath, instructions string) (*Response, error) {
	_ = ctx
	f.calls++
	f.gotPath = resumePath
	f.gotPayload = instructions
	if f.beforeReply != nil {
		f.beforeReply()
	}
	return f.resp, f.err
}

func textResponse(text string) *Response {
	return &Response{Message: Message{Role: "assistant", Content: TextContent(text)}}
}

func testInstructions(jobTitle, jobDescription string) string {
	return "title=" + jobTitle + ";description=" + jobDescription
}

type harness struct {
	ctrl     *Controller
	blobs    *fakeBlobs
	raster   *fakeRasterizer
	records  *fakeRecords
	feedback *fakeFeedback
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		blobs:    &fakeBlobs{},
		raster:   &fakeRasterizer{},
		records:  &fakeRecords{},
		feedback: &fakeFeedback{resp: textResponse(`{"score":80}`)},
	}
	h.ctrl = &Controller{
		Auth:         staticAuth(true),
		Blobs:        h.blobs,
		Rasterizer:   h.raster,
		Records:      h.records,
		Feedback:     h.feedback,
		Instructions: testInstructions,
		Session:      NewSession(),
		NewID:        func() string { return "11111111-2222-4333-8444-555555555555" },
	}
	return h
}

func pdfRequest() AnalysisRequest {
	return AnalysisRequest{
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Build services in Go",
		File: File{
			Name:        "resume.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.7 fake"),
		},
	}
}

var errBoom = errors.New("boom")
