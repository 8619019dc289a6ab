package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartats/internal/ai"
	"smartats/internal/config"
	"smartats/internal/errors"
	"smartats/internal/observability"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, *ai.TokenUsage, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	return s.response, nil, nil
}

func (s *stubProvider) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub", Available: true}
}

func (s *stubProvider) Close() error { return nil }

func newTestServer(t *testing.T, provider ai.Provider) (*Server, *observability.Manager) {
	t.Helper()

	logger := errors.NewLogger(slog.LevelError)
	appCfg := &config.Config{}
	appCfg.Server.CORS.AllowedOrigins = []string{"*"}

	om, err := observability.NewManager(config.ObservabilityConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	srv := NewServer(appCfg, ServerConfig{
		Host:           "localhost",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
	}, &ai.Service{
		Provider: provider,
		Pipeline: ai.NewPipeline(provider, 1, logger),
	}, nil, logger)

	return srv, om
}

func multipartRequest(t *testing.T, jobDescription, filename string, fileContent []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if jobDescription != "" {
		if err := writer.WriteField("job_description", jobDescription); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("resume", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write(fileContent); err != nil {
			t.Fatalf("part.Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAnalyzeHandlerValidation(t *testing.T) {
	tests := []struct {
		name           string
		jobDescription string
		filename       string
		fileContent    []byte
		wantStatus     int
		wantError      string
	}{
		{
			name:        "missing job description",
			filename:    "resume.pdf",
			fileContent: []byte("%PDF-1.4 fake"),
			wantStatus:  http.StatusBadRequest,
			wantError:   "Missing job description",
		},
		{
			name:           "missing resume file",
			jobDescription: "Backend engineer",
			wantStatus:     http.StatusBadRequest,
			wantError:      "Missing resume",
		},
		{
			name:           "non-pdf resume rejected",
			jobDescription: "Backend engineer",
			filename:       "resume.docx",
			fileContent:    []byte("not a pdf"),
			wantStatus:     http.StatusBadRequest,
			wantError:      "Unsupported resume format",
		},
		{
			name:           "unextractable pdf rejected",
			jobDescription: "Backend engineer",
			filename:       "resume.pdf",
			fileContent:    []byte("this is not pdf content at all"),
			wantStatus:     http.StatusBadRequest,
			wantError:      "Unreadable resume",
		},
	}

	provider := &stubProvider{response: `{"JD Match": "80%", "MissingKeywords": [], "Profile Summary": "ok"}`}
	srv, om := newTestServer(t, provider)
	handler := srv.createAnalyzeHandler(om)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, tt.jobDescription, tt.filename, tt.fileContent)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var errResp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if errResp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", errResp.Error, tt.wantError)
			}
		})
	}

	if provider.calls != 0 {
		t.Errorf("provider called %d times for invalid requests, want 0", provider.calls)
	}
}

func TestAnalyzeHandlerNonMultipartBody(t *testing.T) {
	srv, om := newTestServer(t, &stubProvider{})
	handler := srv.createAnalyzeHandler(om)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"job_description": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})
	srv.APIKeys = map[string]bool{"valid-key-12345": true}

	handler := srv.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"invalid key", "X-API-Key", "wrong-key", http.StatusUnauthorized},
		{"valid key", "X-API-Key", "valid-key-12345", http.StatusOK},
		{"valid bearer token", "Authorization", "Bearer valid-key-12345", http.StatusOK},
		{"invalid bearer token", "Authorization", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthMiddlewareDisabledWithoutKeys(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})

	called := false
	handler := srv.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	handler(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler not called when no API keys configured")
	}
}

func TestRootHandler(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})

	rec := httptest.NewRecorder()
	srv.rootHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Errorf("status = %q, want %q", payload["status"], "healthy")
	}
	if payload["message"] != "Smart ATS API is running" {
		t.Errorf("message = %q", payload["message"])
	}
	if payload["version"] != "test" {
		t.Errorf("version = %q, want %q", payload["version"], "test")
	}
}

func TestHealthHandlerDegradedModel(t *testing.T) {
	provider := &unavailableProvider{}
	srv, _ := newTestServer(t, provider)

	rec := httptest.NewRecorder()
	srv.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if payload["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", payload["status"])
	}
}

type unavailableProvider struct {
	stubProvider
}

func (u *unavailableProvider) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub", Available: false, Error: "model offline"}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})

	handler := srv.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight request reached the inner handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{})
	srv.AppConfig.Server.CORS.AllowedOrigins = []string{"https://app.example.com"}

	handler := srv.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty for disallowed origin", got)
	}
}
