package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-feedback/internal/shared/metrics"
	"resume-feedback/internal/shared/telemetry"
)

const tracerName = "resume-feedback/pipeline"

// Controller drives the upload-and-analyze pipeline for one Session.
type Controller struct {
	Auth         AuthGate
	Blobs        BlobStore
	Rasterizer   Rasterizer
	Records      RecordStore
	Feedback     FeedbackService
	Instructions InstructionsFunc
	// Validator is optional; when set, parsed feedback must satisfy it.
	Validator FeedbackValidator
	Session   *Session
	// NewID overrides identifier generation in tests.
	NewID func() string
}

// run carries the data flowing between states of a single invocation.
type run struct {
	req        AnalysisRequest
	state      State
	resumePath string
	image      *File
	imagePath  string
	record     Record
	feedback   Feedback
}

// Analyze executes one run and returns the new record ID. Every failure is
// returned as a *Failure; ErrBusy is returned untouched when a run is already
// active. The session is reset on every exit path.
func (c *Controller) Analyze(ctx context.Context, req AnalysisRequest) (id string, err error) {
	session := c.session()
	if !session.Begin() {
		return "", ErrBusy
	}

	startedAt := time.Now()
	metrics.IncRunStarted()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.analyze")
	r := &run{req: req, state: StateIdle}

	defer func() {
		if rec := recover(); rec != nil {
			id = ""
			err = &Failure{Kind: KindUnexpected, Stage: r.state.String(), Cause: fmt.Errorf("panic: %v", rec)}
		}
		c.finish(ctx, span, session, r, err, startedAt)
	}()

	if err := c.checkDependencies(); err != nil {
		return "", &Failure{Kind: KindUnexpected, Stage: StateValidating.String(), Cause: err}
	}

	state := StateIdle.next()
	for !state.Terminal() {
		prev := r.state
		r.state = state
		session.Set(state)
		c.logStatus(ctx, r, prev, state, nil)

		next, stepErr := c.traceStep(ctx, state, r)
		if stepErr != nil {
			return "", asFailure(state, stepErr)
		}
		state = next
	}
	return r.record.ID, nil
}

// step performs the work of one state and returns its successor.
func (c *Controller) step(ctx context.Context, state State, r *run) (State, error) {
	switch state {
	case StateValidating:
		return c.validate(ctx, r)
	case StateUploadingResume:
		return c.uploadResume(ctx, r)
	case StateConvertingToImage:
		return c.convert(ctx, r)
	case StateUploadingImage:
		return c.uploadImage(ctx, r)
	case StatePersistingDraft:
		return c.persistDraft(ctx, r)
	case StateAnalyzing:
		return c.analyze(ctx, r)
	case StatePersistingFinal:
		return c.persistFinal(ctx, r)
	default:
		return StateFailed, fmt.Errorf("no transition from state %s", state)
	}
}

func (c *Controller) validate(ctx context.Context, r *run) (State, error) {
	if !c.Auth.IsAuthenticated(ctx) {
		return StateFailed, &Failure{Kind: KindUnauthenticated}
	}
	if !IsPDF(r.req.File.ContentType) {
		return StateFailed, &Failure{
			Kind:  KindInvalidFileType,
			Cause: fmt.Errorf("declared content type %q", r.req.File.ContentType),
		}
	}
	return StateValidating.next(), nil
}

func (c *Controller) uploadResume(ctx context.Context, r *run) (State, error) {
	path, err := c.upload(ctx, r.req.File)
	if err != nil {
		return StateFailed, &Failure{Kind: KindUploadFailed, Stage: StageResume, Cause: err}
	}
	r.resumePath = path
	return StateUploadingResume.next(), nil
}

func (c *Controller) convert(ctx context.Context, r *run) (State, error) {
	conv := c.Rasterizer.Convert(ctx, r.req.File)
	if conv.Err != "" || conv.Image == nil {
		cause := errNoImage
		if conv.Err != "" {
			cause = errors.New(conv.Err)
		}
		return StateFailed, &Failure{Kind: KindConversionFailed, Cause: cause}
	}
	if len(conv.Image.Data) == 0 {
		return StateFailed, &Failure{Kind: KindEmptyArtifact, Cause: fmt.Errorf("image %q has zero length", conv.Image.Name)}
	}
	r.image = conv.Image
	return StateConvertingToImage.next(), nil
}

func (c *Controller) uploadImage(ctx context.Context, r *run) (State, error) {
	path, err := c.upload(ctx, *r.image)
	if err != nil {
		return StateFailed, &Failure{Kind: KindUploadFailed, Stage: StageImage, Cause: err}
	}
	r.imagePath = path
	return StateUploadingImage.next(), nil
}

func (c *Controller) persistDraft(ctx context.Context, r *run) (State, error) {
	if r.record.ID == "" {
		r.record = Record{
			ID:             c.newID(),
			ResumePath:     r.resumePath,
			ImagePath:      r.imagePath,
			CompanyName:    r.req.CompanyName,
			JobTitle:       r.req.JobTitle,
			JobDescription: r.req.JobDescription,
		}
	}
	if err := c.persist(ctx, r.record); err != nil {
		return StateFailed, &Failure{Kind: KindUnexpected, Stage: StageDraft, Cause: err}
	}
	return StatePersistingDraft.next(), nil
}

func (c *Controller) analyze(ctx context.Context, r *run) (State, error) {
	instructions := c.Instructions(r.req.JobTitle, r.req.JobDescription)
	resp, err := c.Feedback.Feedback(ctx, r.resumePath, instructions)
	if err != nil {
		return StateFailed, &Failure{Kind: KindFeedbackUnavailable, Cause: err}
	}
	if resp == nil {
		return StateFailed, &Failure{Kind: KindFeedbackUnavailable, Cause: errNoResponse}
	}
	text, ok := resp.Message.Content.Text()
	if !ok {
		return StateFailed, &Failure{Kind: KindFeedbackUnavailable, Cause: errEmptyContent}
	}
	feedback, err := ParseFeedback(text)
	if err != nil {
		return StateFailed, &Failure{Kind: KindFeedbackMalformed, Cause: fmt.Errorf("parse feedback: %w", err)}
	}
	if c.Validator != nil {
		if err := c.Validator.Validate(feedback); err != nil {
			return StateFailed, &Failure{Kind: KindFeedbackMalformed, Cause: err}
		}
	}
	r.feedback = feedback
	return StateAnalyzing.next(), nil
}

func (c *Controller) persistFinal(ctx context.Context, r *run) (State, error) {
	final := r.record
	final.Feedback = r.feedback
	if err := c.persist(ctx, final); err != nil {
		return StateFailed, &Failure{Kind: KindUnexpected, Stage: StageFinal, Cause: err}
	}
	r.record = final
	return StatePersistingFinal.next(), nil
}

func (c *Controller) upload(ctx context.Context, file File) (string, error) {
	path, err := c.Blobs.Upload(ctx, file)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", errNoHandle
	}
	return path, nil
}

func (c *Controller) persist(ctx context.Context, record Record) error {
	payload, err := record.Marshal()
	if err != nil {
		return err
	}
	if err := c.Records.Set(ctx, RecordKey(record.ID), string(payload)); err != nil {
		return fmt.Errorf("set %s: %w", RecordKey(record.ID), err)
	}
	return nil
}

func (c *Controller) traceStep(ctx context.Context, state State, r *run) (State, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline."+state.String())
	defer span.End()
	next, err := c.step(ctx, state, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	return next, err
}

func (c *Controller) finish(ctx context.Context, span trace.Span, session *Session, r *run, err error, startedAt time.Time) {
	defer span.End()
	elapsedMs := float64(time.Since(startedAt).Microseconds()) / 1000.0
	metrics.ObserveRunDurationMs(elapsedMs)

	if err != nil {
		failure := asFailure(r.state, err)
		metrics.IncRunFailed(string(failure.Kind))
		span.SetAttributes(attribute.String("pipeline.failure_kind", string(failure.Kind)))
		span.SetStatus(codes.Error, failure.Message())
		c.logStatus(ctx, r, r.state, StateFailed, failure)
		session.End("", failure)
		return
	}

	metrics.IncRunCompleted()
	span.SetAttributes(attribute.String("pipeline.record_id", r.record.ID))
	c.logStatus(ctx, r, r.state, StateDone, nil)
	session.End(r.record.ID, nil)
}

func (c *Controller) logStatus(ctx context.Context, r *run, from, to State, failure *Failure) {
	fields := map[string]any{
		"request_id":        RequestIDFrom(ctx),
		"record_id":         r.record.ID,
		"phase":             to.String(),
		"status_transition": from.String() + "->" + to.String(),
	}
	if failure == nil {
		telemetry.Info("pipeline.status", fields)
		return
	}
	fields["failure_kind"] = string(failure.Kind)
	fields["stage"] = failure.Stage
	if failure.Cause != nil {
		fields["error"] = failure.Cause.Error()
	}
	telemetry.Error("pipeline.status", fields)
}

func (c *Controller) checkDependencies() error {
	var missing []string
	if c.Auth == nil {
		missing = append(missing, "auth gate")
	}
	if c.Blobs == nil {
		missing = append(missing, "blob store")
	}
	if c.Rasterizer == nil {
		missing = append(missing, "rasterizer")
	}
	if c.Records == nil {
		missing = append(missing, "record store")
	}
	if c.Feedback == nil {
		missing = append(missing, "feedback service")
	}
	if c.Instructions == nil {
		missing = append(missing, "instructions builder")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Controller) session() *Session {
	if c.Session == nil {
		c.Session = NewSession()
	}
	return c.Session
}

func (c *Controller) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return NewID()
}

// IsPDF reports whether a declared media type indicates a PDF. It is a loose
// substring check, not content sniffing.
func IsPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}
