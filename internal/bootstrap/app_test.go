package bootstrap

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"resume-feedback/internal/feedback"
	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/auth"
	"resume-feedback/internal/shared/config"
	"resume-feedback/internal/shared/storage/kv/memory"
	localstore "resume-feedback/internal/shared/storage/object/local"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		RecordStoreType: "memory",
		LLMProvider:     "none",
		RasterDPI:       72,
	}
}

func TestBuildDevDefaults(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if _, ok := app.Blobs.(*localstore.Store); !ok {
		t.Fatalf("expected local blob store, got %T", app.Blobs)
	}
	if _, ok := app.Records.(*memory.Store); !ok {
		t.Fatalf("expected memory record store, got %T", app.Records)
	}
	if _, ok := app.Feedback.(feedback.Placeholder); !ok {
		t.Fatalf("expected placeholder feedback, got %T", app.Feedback)
	}
	if app.Pipeline.Validator != nil {
		t.Fatalf("expected no validator by default")
	}
}

func TestBuildFallsBackToMemoryInDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.RecordStoreType = "postgres"
	cfg.DatabaseURL = ""

	app, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := app.Records.(*memory.Store); !ok {
		t.Fatalf("expected memory fallback, got %T", app.Records)
	}
}

func TestBuildFailsInProduction(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	cfg.RecordStoreType = "postgres"
	cfg.JWTSecret = "secret"

	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for missing DATABASE_URL in production")
	}
}

func TestBuildSchemaStrict(t *testing.T) {
	cfg := devConfig(t)
	cfg.SchemaStrict = true

	app, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.Pipeline.Validator == nil {
		t.Fatalf("expected schema validator")
	}
}

func TestControllerUsesGate(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctrl := app.Controller(auth.TokenGate{Signer: app.Signer, Token: "bogus"})

	_, err = ctrl.Analyze(context.Background(), pipeline.AnalysisRequest{
		File: pipeline.File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	if pipeline.KindOf(err) != pipeline.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRouterRejectsGuestAnalysis(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="cv.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes?wait=true", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "guest1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
}
