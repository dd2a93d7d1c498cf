package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskerhq/tasker/internal/auth"
	"github.com/taskerhq/tasker/internal/config"
	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/service"
	"github.com/taskerhq/tasker/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testJWTSecret = "test-secret-for-integration-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
}

// newTestEnv creates a fresh test environment over an in-memory store with
// rate limits high enough to never trip during a test run.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(store.DriverSQLite, "")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tokens := auth.NewTokenService(testJWTSecret, 12*time.Hour)
	authSvc := service.NewAuthService(st, tokens)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Defaults(config.Development)
	cfg.RateLimitAuth = 10000
	cfg.RateLimitAPI = 10000

	srv := New(cfg, st, authSvc, logger)

	return &testEnv{
		server:  srv,
		store:   st,
		authSvc: authSvc,
	}
}

// registerUser registers a user through the API and returns its bearer token.
func (e *testEnv) registerUser(t *testing.T, email, username string) string {
	t.Helper()
	body := jsonBody(t, map[string]string{
		"email":    email,
		"username": username,
		"password": testPassword,
	})
	rr := e.do(t, "POST", "/api/v1/register", body, nil)
	assertStatus(t, rr, http.StatusCreated)

	var resp model.AuthResponse
	decodeJSON(t, rr, &resp)
	if resp.AccessToken == "" {
		t.Fatal("registerUser: got empty access token")
	}
	return resp.AccessToken
}

// do executes an HTTP request against the test server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAuth executes a request with a bearer token.
func (e *testEnv) doAuth(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// doAPIKey executes a request authenticated with an API key.
func (e *testEnv) doAPIKey(t *testing.T, method, path string, body io.Reader, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"X-API-Key": apiKey,
	})
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["database"] != "ok" {
		t.Errorf("database = %q, want %q", resp["database"], "ok")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice@example.com", "alice")

	// Login with the same credentials.
	body := jsonBody(t, map[string]string{
		"email":    "alice@example.com",
		"password": testPassword,
	})
	rr := env.do(t, "POST", "/api/v1/login", body, nil)
	assertStatus(t, rr, http.StatusOK)

	var login model.AuthResponse
	decodeJSON(t, rr, &login)
	if login.TokenType != "bearer" || login.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}
	if login.User == nil || login.User.Email != "alice@example.com" {
		t.Fatalf("unexpected login user: %+v", login.User)
	}

	// The token resolves via /me.
	rr = env.doAuth(t, "GET", "/api/v1/me", nil, login.AccessToken)
	assertStatus(t, rr, http.StatusOK)

	var me model.User
	decodeJSON(t, rr, &me)
	if me.Username != "alice" {
		t.Errorf("username = %q, want alice", me.Username)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "username": "alice", "password": testPassword}},
		{"short username", map[string]string{"email": "a@example.com", "username": "al", "password": testPassword}},
		{"short password", map[string]string{"email": "a@example.com", "username": "alice", "password": "short"}},
	}
	for _, tt := range tests {
		rr := env.do(t, "POST", "/api/v1/register", jsonBody(t, tt.body), nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rr.Code)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice@example.com", "alice")

	body := jsonBody(t, map[string]string{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": testPassword,
	})
	rr := env.do(t, "POST", "/api/v1/register", body, nil)
	assertStatus(t, rr, http.StatusConflict)

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if !strings.Contains(resp.Error.Message, "Email") {
		t.Errorf("message = %q, want an email conflict", resp.Error.Message)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice@example.com", "alice")

	body := jsonBody(t, map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	rr := env.do(t, "POST", "/api/v1/login", body, nil)
	assertStatus(t, rr, http.StatusUnauthorized)
	if rr.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", rr.Header().Get("WWW-Authenticate"))
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	// No token.
	rr := env.do(t, "GET", "/api/v1/me", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Tampered signature.
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))
	rr = env.doAuth(t, "GET", "/api/v1/me", nil, tampered)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Garbage.
	rr = env.doAuth(t, "GET", "/api/v1/me", nil, "garbage")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")
	env.registerUser(t, "bob@example.com", "bob")

	body := jsonBody(t, map[string]string{"full_name": "Alice Liddell"})
	rr := env.doAuth(t, "PUT", "/api/v1/me", body, token)
	assertStatus(t, rr, http.StatusOK)

	var me model.User
	decodeJSON(t, rr, &me)
	if me.FullName != "Alice Liddell" {
		t.Errorf("full name = %q, want Alice Liddell", me.FullName)
	}

	// Claiming bob's email is a conflict.
	body = jsonBody(t, map[string]string{"email": "bob@example.com"})
	rr = env.doAuth(t, "PUT", "/api/v1/me", body, token)
	assertStatus(t, rr, http.StatusConflict)
}

func TestVerifyTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	rr := env.doAuth(t, "POST", "/api/v1/verify-token", nil, token)
	assertStatus(t, rr, http.StatusOK)

	var me model.User
	decodeJSON(t, rr, &me)
	if me.Email != "alice@example.com" {
		t.Errorf("email = %q", me.Email)
	}
}

// ---------------------------------------------------------------------------
// Legacy anonymous sessions
// ---------------------------------------------------------------------------

func TestSimpleAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/auth/simple", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var tok model.TokenResponse
	decodeJSON(t, rr, &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" || tok.ExpiresIn <= 0 {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	rr = env.doAuth(t, "GET", "/api/v1/auth/verify", nil, tok.AccessToken)
	assertStatus(t, rr, http.StatusOK)

	var status struct {
		Authenticated bool   `json:"authenticated"`
		SessionID     string `json:"session_id"`
		ExpiresAt     int64  `json:"expires_at"`
	}
	decodeJSON(t, rr, &status)
	if !status.Authenticated || status.SessionID == "" {
		t.Errorf("unexpected verify response: %+v", status)
	}
	if status.ExpiresAt <= time.Now().Unix() {
		t.Errorf("expires_at %d is in the past", status.ExpiresAt)
	}
}

func TestSessionIDsAreDistinct(t *testing.T) {
	env := newTestEnv(t)

	sid := func() string {
		rr := env.do(t, "POST", "/api/v1/auth/simple", nil, nil)
		assertStatus(t, rr, http.StatusOK)
		var tok model.TokenResponse
		decodeJSON(t, rr, &tok)

		rr = env.doAuth(t, "GET", "/api/v1/auth/verify", nil, tok.AccessToken)
		assertStatus(t, rr, http.StatusOK)
		var status struct {
			SessionID string `json:"session_id"`
		}
		decodeJSON(t, rr, &status)
		return status.SessionID
	}

	if a, b := sid(), sid(); a == b {
		t.Errorf("two sessions share id %q", a)
	}
}

func TestSessionTokenCannotAccessUserRoutes(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/auth/simple", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var tok model.TokenResponse
	decodeJSON(t, rr, &tok)

	// A session token carries no user principal; user routes must reject it.
	rr = env.doAuth(t, "GET", "/api/v1/me", nil, tok.AccessToken)
	assertStatus(t, rr, http.StatusUnauthorized)
	rr = env.doAuth(t, "GET", "/api/v1/tasks", nil, tok.AccessToken)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestUserTokenCannotVerifyAsSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	rr := env.doAuth(t, "GET", "/api/v1/auth/verify", nil, token)
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	// Create.
	body := jsonBody(t, map[string]interface{}{
		"title":    "write report",
		"priority": 1,
	})
	rr := env.doAuth(t, "POST", "/api/v1/tasks", body, token)
	assertStatus(t, rr, http.StatusCreated)

	var task model.Task
	decodeJSON(t, rr, &task)
	if task.ID == 0 || task.Priority != model.PriorityHigh {
		t.Fatalf("unexpected task: %+v", task)
	}

	// Update: complete it.
	body = jsonBody(t, map[string]interface{}{"is_completed": true})
	rr = env.doAuth(t, "PUT", fmt.Sprintf("/api/v1/tasks/%d", task.ID), body, token)
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &task)
	if !task.IsCompleted {
		t.Error("expected completed task")
	}

	// List.
	rr = env.doAuth(t, "GET", "/api/v1/tasks", nil, token)
	assertStatus(t, rr, http.StatusOK)
	var tasks []model.Task
	decodeJSON(t, rr, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}

	// Delete.
	rr = env.doAuth(t, "DELETE", fmt.Sprintf("/api/v1/tasks/%d", task.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)
	rr = env.doAuth(t, "GET", fmt.Sprintf("/api/v1/tasks/%d", task.ID), nil, token)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"priority": 2}},
		{"priority too low", map[string]interface{}{"title": "x", "priority": 0}},
		{"priority too high", map[string]interface{}{"title": "x", "priority": 4}},
		{"long title", map[string]interface{}{"title": strings.Repeat("x", 256)}},
		{"unknown category", map[string]interface{}{"title": "x", "category_id": 999}},
	}
	for _, tt := range tests {
		rr := env.doAuth(t, "POST", "/api/v1/tasks", jsonBody(t, tt.body), token)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rr.Code)
		}
	}
}

func TestTaskCrossTenant(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "alice@example.com", "alice")
	bobToken := env.registerUser(t, "bob@example.com", "bob")

	body := jsonBody(t, map[string]interface{}{"title": "alice's secret"})
	rr := env.doAuth(t, "POST", "/api/v1/tasks", body, aliceToken)
	assertStatus(t, rr, http.StatusCreated)
	var task model.Task
	decodeJSON(t, rr, &task)

	// Bob gets 404, not 403: other tenants' resources do not exist.
	path := fmt.Sprintf("/api/v1/tasks/%d", task.ID)
	rr = env.doAuth(t, "GET", path, nil, bobToken)
	assertStatus(t, rr, http.StatusNotFound)
	rr = env.doAuth(t, "PUT", path, jsonBody(t, map[string]interface{}{"title": "stolen"}), bobToken)
	assertStatus(t, rr, http.StatusNotFound)
	rr = env.doAuth(t, "DELETE", path, nil, bobToken)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestTaskCategoryDetach(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	rr := env.doAuth(t, "POST", "/api/v1/categories", jsonBody(t, map[string]string{
		"name": "work", "color": "#FF0000",
	}), token)
	assertStatus(t, rr, http.StatusCreated)
	var cat model.Category
	decodeJSON(t, rr, &cat)

	rr = env.doAuth(t, "POST", "/api/v1/tasks", jsonBody(t, map[string]interface{}{
		"title": "filed", "category_id": cat.ID,
	}), token)
	assertStatus(t, rr, http.StatusCreated)
	var task model.Task
	decodeJSON(t, rr, &task)
	if task.CategoryID == nil || *task.CategoryID != cat.ID {
		t.Fatalf("expected category %d, got %v", cat.ID, task.CategoryID)
	}

	// Explicit null detaches the task from its category.
	rr = env.doAuth(t, "PUT", fmt.Sprintf("/api/v1/tasks/%d", task.ID),
		bytes.NewBufferString(`{"category_id": null}`), token)
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &task)
	if task.CategoryID != nil {
		t.Errorf("category_id = %v, want nil", *task.CategoryID)
	}
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	rr := env.doAuth(t, "POST", "/api/v1/categories", jsonBody(t, map[string]string{
		"name": "work", "color": "#336699",
	}), token)
	assertStatus(t, rr, http.StatusCreated)
	var cat model.Category
	decodeJSON(t, rr, &cat)

	// Duplicate name for the same user conflicts.
	rr = env.doAuth(t, "POST", "/api/v1/categories", jsonBody(t, map[string]string{
		"name": "work", "color": "#000000",
	}), token)
	assertStatus(t, rr, http.StatusConflict)

	// Bad color is rejected.
	rr = env.doAuth(t, "POST", "/api/v1/categories", jsonBody(t, map[string]string{
		"name": "home", "color": "red",
	}), token)
	assertStatus(t, rr, http.StatusBadRequest)

	// Delete and verify it is gone.
	rr = env.doAuth(t, "DELETE", fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)
	rr = env.doAuth(t, "GET", fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil, token)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	// Create a key; plaintext is returned once.
	rr := env.doAuth(t, "POST", "/api/v1/keys", jsonBody(t, map[string]string{
		"name": "monitoring",
	}), token)
	assertStatus(t, rr, http.StatusCreated)

	var created struct {
		ID        int64  `json:"id"`
		Key       string `json:"api_key"`
		KeyPrefix string `json:"key_prefix"`
		IsActive  bool   `json:"is_active"`
	}
	decodeJSON(t, rr, &created)
	if created.Key == "" || !strings.HasPrefix(created.Key, "tasker_") {
		t.Fatalf("unexpected key %q", created.Key)
	}
	if !strings.HasPrefix(created.Key, created.KeyPrefix) {
		t.Errorf("prefix %q does not match key", created.KeyPrefix)
	}

	// The listing never exposes plaintext.
	rr = env.doAuth(t, "GET", "/api/v1/keys", nil, token)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), created.Key) {
		t.Error("key listing leaked plaintext key material")
	}

	// The key authenticates the machine endpoint.
	rr = env.doAPIKey(t, "GET", "/api/v1/stats", nil, created.Key)
	assertStatus(t, rr, http.StatusOK)
	var counts store.Counts
	decodeJSON(t, rr, &counts)
	if counts.Users != 1 || counts.APIKeys != 1 {
		t.Errorf("unexpected counts %+v", counts)
	}

	// Revoke it: same request now fails like an unknown key.
	rr = env.doAuth(t, "PATCH", fmt.Sprintf("/api/v1/keys/%d", created.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)
	rr = env.doAPIKey(t, "GET", "/api/v1/stats", nil, created.Key)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Delete it.
	rr = env.doAuth(t, "DELETE", fmt.Sprintf("/api/v1/keys/%d", created.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)
}

func TestStatsRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/stats", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.doAPIKey(t, "GET", "/api/v1/stats", nil, "tasker_never-issued")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestStatusOptionalAPIKey(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	// Anonymous callers pass through unauthenticated.
	rr := env.do(t, "GET", "/api/v1/status", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["authenticated"] != false {
		t.Errorf("authenticated = %v, want false", resp["authenticated"])
	}

	// A valid key authenticates.
	cr := env.doAuth(t, "POST", "/api/v1/keys", jsonBody(t, map[string]string{"name": "probe"}), token)
	assertStatus(t, cr, http.StatusCreated)
	var created struct {
		Key string `json:"api_key"`
	}
	decodeJSON(t, cr, &created)

	rr = env.doAPIKey(t, "GET", "/api/v1/status", nil, created.Key)
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &resp)
	if resp["authenticated"] != true || resp["key_name"] != "probe" {
		t.Errorf("unexpected status response: %+v", resp)
	}

	// A present-but-invalid key is still rejected.
	rr = env.doAPIKey(t, "GET", "/api/v1/status", nil, "tasker_bogus")
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestAPIKeyCannotAccessUserRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "alice@example.com", "alice")

	cr := env.doAuth(t, "POST", "/api/v1/keys", jsonBody(t, map[string]string{"name": "probe"}), token)
	assertStatus(t, cr, http.StatusCreated)
	var created struct {
		Key string `json:"api_key"`
	}
	decodeJSON(t, cr, &created)

	rr := env.doAPIKey(t, "GET", "/api/v1/tasks", nil, created.Key)
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Body limits
// ---------------------------------------------------------------------------

func TestRequestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t)

	huge := bytes.NewBufferString(`{"email":"` + strings.Repeat("x", 2<<20) + `"}`)
	rr := env.do(t, "POST", "/api/v1/register", huge, nil)
	assertStatus(t, rr, http.StatusRequestEntityTooLarge)
}
