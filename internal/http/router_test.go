package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/ratelimit"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/dbtest"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/storage"
)

const webhookSecret = "whsec_router_test"

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	provider *payments.MockProvider
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t,
		&users.User{}, &projects.Project{}, &projects.Media{}, &projects.Update{},
		&payments.Payment{}, &payments.ProviderEvent{},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uploadDir := t.TempDir()

	mp := payments.NewMockProvider(webhookSecret)
	settler := payments.NewSettler(db)

	r := NewRouter(Deps{
		Logger:          logger,
		Metrics:         metrics.New(),
		Limiter:         limiter,
		Users:           users.NewService(db),
		Tokens:          users.NewTokenIssuer("test-secret", time.Hour),
		Projects:        projects.NewService(db, storage.NewLocal(uploadDir, "/uploads"), "usd"),
		Checkout:        payments.NewCheckoutService(db, mp, payments.CheckoutConfig{Currency: "usd", ClientURL: "http://client.test", Timeout: time.Second}),
		Confirm:         payments.NewConfirmService(db, mp, settler, time.Second),
		Webhooks:        payments.NewWebhookService(db, mp, settler),
		ClientURL:       "http://client.test",
		UploadDir:       uploadDir,
		UploadURLPrefix: "/uploads",
	})
	return &testEnv{router: r, db: db, provider: mp}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, v any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return e.do(t, method, path, token, bytes.NewReader(b), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decode(t, w, &out)
	return out.Token
}

func (e *testEnv) createProject(t *testing.T, token, goal string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Clean water")
	_ = mw.WriteField("description", "A borehole for the village school.")
	_ = mw.WriteField("goal", goal)
	fw, err := mw.CreateFormFile("media", "well.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("\x89PNG fake"))
	_ = mw.Close()

	w := e.do(t, http.MethodPost, "/api/projects", token, &buf, mw.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body %s", w.Code, w.Body.String())
	}
	var p struct {
		ID     string   `json:"id"`
		Images []string `json:"images"`
	}
	decode(t, w, &p)
	if len(p.Images) != 1 || !strings.HasPrefix(p.Images[0], "/uploads/") {
		t.Fatalf("images = %v", p.Images)
	}
	return p.ID
}

func (e *testEnv) collected(t *testing.T, projectID string) (int64, bool) {
	t.Helper()
	var p projects.Project
	if err := e.db.First(&p, "id = ?", projectID).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	return p.CollectedCents, p.IsFunded
}

func (e *testEnv) webhook(t *testing.T, provider, eventID, eventType string, s payments.CheckoutSession, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	var ev payments.MockEvent
	ev.ID = eventID
	ev.Type = eventType
	ev.Data.Object = payments.MockSessionObject{
		ID:            s.ID,
		Object:        "checkout.session",
		PaymentStatus: s.PaymentStatus,
		AmountTotal:   s.AmountTotal,
		Currency:      s.Currency,
		Metadata:      s.Metadata,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	secret := webhookSecret
	if !sign {
		secret = "wrong"
	}
	req.Header.Set(payments.MockSignatureHeader, payments.MockSignature(secret, time.Now(), body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	w = env.do(t, http.MethodGet, "/", "", nil, "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "http://client.test" {
		t.Errorf("GET / = %d, Location %q", w.Code, w.Header().Get("Location"))
	}
}

func TestErrorBodyShape(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/does-not-exist", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var eb errorBody
	decode(t, w, &eb)
	if eb.Error.Code != "NOT_FOUND" || eb.Error.Message != "Project not found" {
		t.Errorf("error = %+v", eb.Error)
	}
	if eb.RequestID != "rid-123" {
		t.Errorf("request_id = %q, want rid-123", eb.RequestID)
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "amina")

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "amina", "email": "amina@example.com", "password": "secret1",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}

	w = env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "amina@example.com", "password": "wrong-password",
	})
	var eb errorBody
	decode(t, w, &eb)
	if w.Code != http.StatusUnauthorized || eb.Error.Code != "AUTH_ERROR" {
		t.Errorf("bad login = %d %+v", w.Code, eb.Error)
	}

	w = env.do(t, http.MethodGet, "/api/users/me", token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /me = %d %s", w.Code, w.Body.String())
	}
	var me struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decode(t, w, &me)
	if me.Username != "amina" || me.Email != "amina@example.com" {
		t.Errorf("me = %+v", me)
	}

	if w := env.do(t, http.MethodGet, "/api/users/me", "", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /me = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/users/me", "not-a-jwt", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token /me = %d, want 401", w.Code)
	}
}

func TestRegisterValidationFields(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "amina", "email": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var eb errorBody
	decode(t, w, &eb)
	if eb.Error.Code != "INVALID_INPUT" || eb.Error.Fields["email"] == "" || eb.Error.Fields["password"] == "" {
		t.Errorf("error = %+v", eb.Error)
	}
}

func TestProjectsRequireOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.register(t, "owner")
	other := env.register(t, "other")
	id := env.createProject(t, owner, "100")

	body := strings.NewReader("title=Hijacked")
	w := env.do(t, http.MethodPut, "/api/projects/"+id, other, body, "application/x-www-form-urlencoded")
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign update = %d, want 403", w.Code)
	}

	body = strings.NewReader("title=Clean water for all")
	w = env.do(t, http.MethodPut, "/api/projects/"+id, owner, body, "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Clean water for all") {
		t.Errorf("owner update = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/projects/"+id, "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET project = %d", w.Code)
	}
	var detail struct {
		Project struct {
			Title string `json:"title"`
		} `json:"project"`
		Updates []any `json:"updates"`
	}
	decode(t, w, &detail)
	if detail.Project.Title != "Clean water for all" || detail.Updates == nil {
		t.Errorf("detail = %+v", detail)
	}

	if w := env.do(t, http.MethodDelete, "/api/projects/"+id, other, nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/projects/"+id, owner, nil, ""); w.Code != http.StatusOK {
		t.Errorf("owner delete = %d", w.Code)
	}
}

func TestCreateProjectAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/projects", "", strings.NewReader("title=x"), "application/x-www-form-urlencoded")
	var eb errorBody
	decode(t, w, &eb)
	if w.Code != http.StatusUnauthorized || eb.Error.Code != "AUTH_ERROR" {
		t.Errorf("anonymous create = %d %+v", w.Code, eb.Error)
	}
}

func TestUploadsServedCrossOrigin(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "owner")
	id := env.createProject(t, token, "100")

	var p projects.Project
	if err := env.db.Preload("Media").First(&p, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	w := env.do(t, http.MethodGet, p.Images()[0], "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET upload = %d", w.Code)
	}
	if got := w.Header().Get("Cross-Origin-Resource-Policy"); got != "cross-origin" {
		t.Errorf("Cross-Origin-Resource-Policy = %q", got)
	}
}

// Checkout, then both the webhook and the client confirmation report the
// same session. The project is credited once.
func TestCheckoutWebhookConfirmCreditsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "owner")
	id := env.createProject(t, token, "100")

	w := env.doJSON(t, http.MethodPost, "/api/payments/checkout/"+id, token, map[string]any{"amount": 25.5})
	if w.Code != http.StatusOK {
		t.Fatalf("checkout = %d %s", w.Code, w.Body.String())
	}
	var co struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
	}
	decode(t, w, &co)
	if co.URL == "" || co.SessionID == "" {
		t.Fatalf("checkout response = %+v", co)
	}

	// not paid yet
	w = env.doJSON(t, http.MethodPost, "/api/payments/confirm", "", map[string]string{"session_id": co.SessionID, "project": id})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("confirm before payment = %d, want 402", w.Code)
	}

	if err := env.provider.MarkPaid(co.SessionID); err != nil {
		t.Fatal(err)
	}
	s, err := env.provider.GetCheckoutSession(context.Background(), co.SessionID)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		w = env.webhook(t, "mock", "evt_1", "checkout.session.completed", s, true)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"received":true`) {
			t.Fatalf("webhook #%d = %d %s", i, w.Code, w.Body.String())
		}
	}

	w = env.doJSON(t, http.MethodPost, "/api/payments/confirm", "", map[string]string{"session_id": co.SessionID, "project": id})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm = %d %s", w.Code, w.Body.String())
	}
	var conf struct {
		OK      bool `json:"ok"`
		Project struct {
			Collected float64 `json:"collected"`
		} `json:"project"`
	}
	decode(t, w, &conf)
	if !conf.OK || conf.Project.Collected != 25.5 {
		t.Errorf("confirm body = %+v", conf)
	}

	if cents, funded := env.collected(t, id); cents != 2550 || funded {
		t.Errorf("collected = %d funded = %v, want 2550 false", cents, funded)
	}
}

func TestCheckoutRejectsBadAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "owner")
	id := env.createProject(t, token, "100")

	for _, amount := range []any{0, -3, "abc"} {
		w := env.doJSON(t, http.MethodPost, "/api/payments/checkout/"+id, token, map[string]any{"amount": amount})
		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %v: status = %d, want 400", amount, w.Code)
		}
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "owner")
	id := env.createProject(t, token, "100")

	s := payments.CheckoutSession{
		ID:            "cs_forged",
		PaymentStatus: payments.PaymentStatusPaid,
		AmountTotal:   5000,
		Currency:      "usd",
		Metadata:      map[string]string{payments.MetaProjectID: id},
	}
	w := env.webhook(t, "mock", "evt_forged", "checkout.session.completed", s, false)
	var eb errorBody
	decode(t, w, &eb)
	if w.Code != http.StatusBadRequest || eb.Error.Code != "SIGNATURE_ERROR" {
		t.Errorf("forged webhook = %d %+v", w.Code, eb.Error)
	}
	if cents, _ := env.collected(t, id); cents != 0 {
		t.Errorf("collected = %d after forged webhook", cents)
	}

	if w := env.webhook(t, "stripe", "evt_x", "checkout.session.completed", s, true); w.Code != http.StatusNotFound {
		t.Errorf("unknown provider = %d, want 404", w.Code)
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	lim := ratelimit.NewMemory(2, time.Minute)
	t.Cleanup(lim.Close)
	env := newTestEnv(t, lim)

	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodGet, "/api/projects", "", nil, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	w := env.do(t, http.MethodGet, "/api/projects", "", nil, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	var eb errorBody
	decode(t, w, &eb)
	if eb.Error.Code != "RATE_LIMITED" {
		t.Errorf("code = %q", eb.Error.Code)
	}

	if w := env.do(t, http.MethodGet, "/health", "", nil, ""); w.Code != http.StatusOK {
		t.Errorf("/health limited: %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/health", "", nil, "")

	w := env.do(t, http.MethodGet, "/metrics", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `together_http_requests_total{method="GET",route="/health",status="200"}`) {
		t.Errorf("metrics body missing /health counter:\n%s", w.Body.String())
	}
}
