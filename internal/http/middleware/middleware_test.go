package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubParser map[string]string

func (p stubParser) Parse(token string) (string, error) {
	if uid, ok := p[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(discard), Recovery(discard), Auth(stubParser{"good": "user-1"}))
	return r
}

func serve(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) {
		Fail(c, apperr.InvalidErr("Validation failed", map[string]string{"title": "too short"}))
	})

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if errorCode(body) != "INVALID_INPUT" {
		t.Errorf("body = %v", body)
	}
	fields := body["error"].(map[string]any)["fields"].(map[string]any)
	if fields["title"] != "too short" {
		t.Errorf("fields = %v", fields)
	}
	if body["request_id"] == "" {
		t.Error("missing request_id")
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { Fail(c, errors.New("dial tcp 10.0.0.1:3306: refused")) })

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "3306") {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}
}

func TestRecoveryReturns500(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError || errorCode(body) != "INTERNAL_ERROR" {
		t.Errorf("panic = %d %v", w.Code, body)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller id kept", "abc-123", true},
		{"missing", "", false},
		{"unsafe chars replaced", "abc\n<script>", false},
		{"too long replaced", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			w, _ := serve(r, req)
			got := w.Header().Get(HeaderRequestID)
			if got != w.Body.String() {
				t.Errorf("header %q != context %q", got, w.Body.String())
			}
			if tt.keep && got != tt.header {
				t.Errorf("request id = %q, want %q", got, tt.header)
			}
			if !tt.keep && (got == tt.header || len(got) != 32) {
				t.Errorf("request id = %q, want a fresh one", got)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	r := newEngine()
	r.GET("/open", func(c *gin.Context) {
		uid, _ := CurrentUserID(c)
		c.String(http.StatusOK, uid)
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		uid, _ := CurrentUserID(c)
		c.String(http.StatusOK, uid)
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"anonymous open", "/open", "", http.StatusOK, ""},
		{"token on open", "/open", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "/private", "bearer good", http.StatusOK, "user-1"},
		{"anonymous private", "/private", "", http.StatusUnauthorized, ""},
		{"bad token", "/open", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "/private", "Basic good", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w, body := serve(r, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusUnauthorized && errorCode(body) != "AUTH_ERROR" {
				t.Errorf("code = %q", errorCode(body))
			}
		})
	}
}

func TestLoggerRecordsRouteAndUser(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(slog.New(slog.NewJSONHandler(&buf, nil))), Auth(stubParser{"good": "user-1"}))
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	tests := []struct {
		name      string
		path      string
		token     string
		wantRoute string
		wantUser  string
		wantLevel string
	}{
		{"authenticated", "/projects/42?x=1", "good", "/projects/:id", "user-1", "INFO"},
		{"anonymous", "/projects/42", "", "/projects/:id", "", "INFO"},
		{"server error", "/boom", "", "/boom", "", "ERROR"},
		{"unmatched", "/nope", "", "", "", "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			serve(r, req)

			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if line["msg"] != "http_request" || line["level"] != tt.wantLevel {
				t.Errorf("line = %v", line)
			}
			if got, _ := line["route"].(string); got != tt.wantRoute {
				t.Errorf("route = %q, want %q", got, tt.wantRoute)
			}
			if got, _ := line["user_id"].(string); got != tt.wantUser {
				t.Errorf("user_id = %q, want %q", got, tt.wantUser)
			}
			if got, _ := line["path"].(string); got != tt.path {
				t.Errorf("path = %q, want %q", got, tt.path)
			}
		})
	}
}
