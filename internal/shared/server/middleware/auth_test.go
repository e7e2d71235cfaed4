package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-feedback/internal/shared/auth"
)

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.NewSigner("test-secret", "dev")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return signer
}

func identityRouter(signer *auth.Signer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(signer))
	router.GET("/api/v1/resumes/session", func(c *gin.Context) {
		id, _ := auth.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "ctxUser": id.UserID, "guest": id.Guest})
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)))
	router.OPTIONS("/api/v1/resumes", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/resumes", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingIdentity(t *testing.T) {
	router := identityRouter(newTestSigner(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/session", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	signer := newTestSigner(t)
	token, err := signer.Sign(auth.Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	router := identityRouter(signer)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if want := `"ctxUser":"user-1"`; !contains(body, want) {
		t.Fatalf("expected %s in %s", want, body)
	}
	if want := `"guest":false`; !contains(body, want) {
		t.Fatalf("expected %s in %s", want, body)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	other, err := auth.NewSigner("other-secret", "dev")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := other.Sign(auth.Claims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	router := identityRouter(newTestSigner(t))

	for _, header := range []string{"Bearer " + token, "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/session", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAuthGuestHeader(t *testing.T) {
	router := identityRouter(newTestSigner(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/session", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if !contains(body, `"userId":"guest:g1"`) || !contains(body, `"guest":true`) {
		t.Fatalf("unexpected body %s", body)
	}
}
