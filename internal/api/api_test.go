package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/api"
	"github.com/threaded-comments-api/internal/config"
	"github.com/threaded-comments-api/internal/mocks"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/service"
)

const (
	aliceID = "0b6f2c1e-3a4d-4c5e-9f60-7a8b9c0d1e2f"
	bobID   = "5d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b1a"
)

type stubHealth struct {
	err error
}

func (s stubHealth) HealthCheck(ctx context.Context) error { return s.err }

type testServer struct {
	router   *gin.Engine
	store    *mocks.MockStore
	services *service.Services
	tokens   map[string]string
}

func setupTestRouter(t *testing.T, health api.HealthChecker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", CORSOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret",
			TokenTTL:           time.Hour,
			PrincipalCacheSize: 16,
			PrincipalCacheTTL:  time.Minute,
		},
		Comments: config.CommentConfig{
			EditWindow:    models.DefaultEditWindow,
			RestoreWindow: models.DefaultRestoreWindow,
			MaxLength:     2000,
		},
	}

	store := mocks.NewMockStore()
	log := zerolog.Nop()
	services := service.NewServices(store.Repos, cfg, log)

	ts := &testServer{
		router:   api.NewRouter(services, cfg, log, health),
		store:    store,
		services: services,
		tokens:   make(map[string]string),
	}
	for id, name := range map[string]string{aliceID: "alice", bobID: "bob"} {
		user := store.AddUser(id, name)
		token, _, err := services.Auth.IssueToken(user)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		ts.tokens[name] = token
	}
	return ts
}

func (ts *testServer) do(method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[user])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		health         api.HealthChecker
		expectedCode   int
		expectedStatus string
	}{
		{name: "no checker", health: nil, expectedCode: http.StatusOK, expectedStatus: "healthy"},
		{name: "database up", health: stubHealth{}, expectedCode: http.StatusOK, expectedStatus: "healthy"},
		{name: "database down", health: stubHealth{err: errors.New("connection refused")}, expectedCode: http.StatusServiceUnavailable, expectedStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestRouter(t, tt.health)
			w := ts.do("GET", "/health", "", nil)

			if w.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d", tt.expectedCode, w.Code)
			}
			response := decode[map[string]interface{}](t, w)
			if response["status"] != tt.expectedStatus {
				t.Errorf("Expected status %q, got %v", tt.expectedStatus, response["status"])
			}
			if response["service"] != "threaded-comments-api" {
				t.Errorf("Expected service name, got %v", response["service"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestRouter(t, nil)
	root := decode[models.Comment](t, ts.do("POST", "/v1/comments", "alice", gin.H{"content": "Root"}))
	ts.do("POST", "/v1/comments", "bob", gin.H{"content": "Reply", "parent_id": root.ID})

	w := ts.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	response := decode[map[string]interface{}](t, w)
	db := response["database"].(map[string]interface{})
	if db["comments"].(float64) != 2 {
		t.Errorf("Expected 2 comments, got %v", db["comments"])
	}
	if db["notifications"].(float64) != 1 {
		t.Errorf("Expected 1 notification, got %v", db["notifications"])
	}
}

func TestMetricsEndpointStorageFailure(t *testing.T) {
	ts := setupTestRouter(t, nil)
	ts.store.Comments.CountError = errors.New("connection reset")

	w := ts.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if _, ok := decode[map[string]interface{}](t, w)["database"]; ok {
		t.Error("Expected no counts when storage fails")
	}
}

func TestListRootsEncodesEmptyReplies(t *testing.T) {
	ts := setupTestRouter(t, nil)
	root := decode[models.Comment](t, ts.do("POST", "/v1/comments", "alice", gin.H{"content": "Lonely root"}))
	reply := decode[models.Comment](t, ts.do("POST", "/v1/comments", "bob", gin.H{"content": "Gone soon", "parent_id": root.ID}))
	ts.do("DELETE", "/v1/comments/"+reply.ID, "bob", nil)

	w := ts.do("GET", "/v1/comments", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	roots := decode[[]map[string]interface{}](t, w)
	if len(roots) != 1 {
		t.Fatalf("Expected 1 root, got %d", len(roots))
	}
	replies, ok := roots[0]["replies"].([]interface{})
	if !ok {
		t.Fatalf("Expected replies array, got %v", roots[0]["replies"])
	}
	if len(replies) != 0 {
		t.Errorf("Expected no live replies, got %d", len(replies))
	}
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestRouter(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{"POST", "/v1/comments"},
		{"PUT", "/v1/comments/" + aliceID},
		{"DELETE", "/v1/comments/" + aliceID},
		{"POST", "/v1/comments/" + aliceID + "/restore"},
		{"GET", "/v1/notifications"},
		{"GET", "/v1/notifications/unread-count"},
		{"PUT", "/v1/notifications/read-all"},
		{"GET", "/v1/users/profile"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			w := ts.do(r.method, r.path, "", gin.H{"content": "x"})
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", w.Code)
			}
		})
	}

	req := httptest.NewRequest("GET", "/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for invalid token, got %d", w.Code)
	}
}

func TestCommentEndpoints(t *testing.T) {
	ts := setupTestRouter(t, nil)

	w := ts.do("POST", "/v1/comments", "alice", gin.H{"content": "Hello **world**"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	root := decode[models.Comment](t, w)
	if root.Author == nil || root.Author.Username != "alice" {
		t.Errorf("Expected author alice, got %+v", root.Author)
	}
	if root.ContentHTML == "" {
		t.Error("Expected content_html in response")
	}

	w = ts.do("POST", "/v1/comments", "bob", gin.H{"content": "A reply", "parent_id": root.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 for reply, got %d", w.Code)
	}
	reply := decode[models.Comment](t, w)

	w = ts.do("GET", "/v1/comments", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	roots := decode[[]models.Comment](t, w)
	if len(roots) != 1 || len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != reply.ID {
		t.Errorf("Unexpected thread listing: %s", w.Body.String())
	}

	w = ts.do("GET", "/v1/comments/"+reply.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	got := decode[models.Comment](t, w)
	if got.Parent == nil || got.Parent.ID != root.ID {
		t.Errorf("Expected parent in response, got %+v", got.Parent)
	}

	w = ts.do("PUT", "/v1/comments/"+reply.ID, "bob", gin.H{"content": "Edited"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for edit, got %d", w.Code)
	}

	w = ts.do("PUT", "/v1/comments/"+reply.ID, "alice", gin.H{"content": "Not mine"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign edit, got %d", w.Code)
	}

	w = ts.do("DELETE", "/v1/comments/"+reply.ID, "bob", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for delete, got %d", w.Code)
	}
	if !decode[models.Comment](t, w).IsDeleted {
		t.Error("Expected deleted comment in response")
	}

	roots = decode[[]models.Comment](t, ts.do("GET", "/v1/comments", "", nil))
	if len(roots[0].Replies) != 0 {
		t.Errorf("Expected deleted reply to be hidden, got %d replies", len(roots[0].Replies))
	}
	roots = decode[[]models.Comment](t, ts.do("GET", "/v1/comments?include_deleted=true", "", nil))
	if len(roots[0].Replies) != 1 {
		t.Errorf("Expected deleted reply with include_deleted, got %d replies", len(roots[0].Replies))
	}

	w = ts.do("POST", "/v1/comments/"+reply.ID+"/restore", "bob", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for restore, got %d", w.Code)
	}
}

func TestCommentErrors(t *testing.T) {
	ts := setupTestRouter(t, nil)
	missing := "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"

	tests := []struct {
		name         string
		method       string
		path         string
		user         string
		body         interface{}
		expectedCode int
	}{
		{name: "missing content", method: "POST", path: "/v1/comments", user: "alice", body: gin.H{}, expectedCode: http.StatusBadRequest},
		{name: "blank content", method: "POST", path: "/v1/comments", user: "alice", body: gin.H{"content": "   "}, expectedCode: http.StatusBadRequest},
		{name: "missing parent", method: "POST", path: "/v1/comments", user: "alice", body: gin.H{"content": "x", "parent_id": missing}, expectedCode: http.StatusNotFound},
		{name: "unknown comment", method: "GET", path: "/v1/comments/" + missing, expectedCode: http.StatusNotFound},
		{name: "malformed id", method: "GET", path: "/v1/comments/abc", expectedCode: http.StatusNotFound},
		{name: "bad include_deleted", method: "GET", path: "/v1/comments?include_deleted=maybe", expectedCode: http.StatusBadRequest},
		{name: "edit unknown", method: "PUT", path: "/v1/comments/" + missing, user: "alice", body: gin.H{"content": "x"}, expectedCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(tt.method, tt.path, tt.user, tt.body)
			if w.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
			}
			if _, ok := decode[map[string]interface{}](t, w)["error"]; !ok {
				t.Error("Expected error field in response")
			}
		})
	}
}

func TestNotificationEndpoints(t *testing.T) {
	ts := setupTestRouter(t, nil)

	root := decode[models.Comment](t, ts.do("POST", "/v1/comments", "alice", gin.H{"content": "Root"}))
	ts.do("POST", "/v1/comments", "bob", gin.H{"content": "Reply", "parent_id": root.ID})

	w := ts.do("GET", "/v1/notifications", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	notifications := decode[[]models.Notification](t, w)
	if len(notifications) != 1 || notifications[0].Type != models.NotificationTypeReply {
		t.Fatalf("Unexpected notifications: %s", w.Body.String())
	}

	count := decode[models.UnreadCountResponse](t, ts.do("GET", "/v1/notifications/unread-count", "alice", nil))
	if count.Unread != 1 {
		t.Errorf("Expected 1 unread, got %d", count.Unread)
	}

	w = ts.do("PUT", "/v1/notifications/"+notifications[0].ID+"/read", "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for another user's notification, got %d", w.Code)
	}

	w = ts.do("PUT", "/v1/notifications/"+notifications[0].ID+"/read", "alice", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !decode[models.Notification](t, w).IsRead {
		t.Error("Expected notification to be read")
	}

	w = ts.do("PUT", "/v1/notifications/read-all", "bob", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	ts := setupTestRouter(t, nil)

	w := ts.do("POST", "/v1/auth/register", "", gin.H{"username": "carol", "email": "carol@example.com", "password": "secret123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := decode[map[string]interface{}](t, w)["password_hash"]; ok {
		t.Error("Password hash must not be exposed")
	}

	w = ts.do("POST", "/v1/auth/register", "", gin.H{"username": "carol", "email": "carol2@example.com", "password": "secret123"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate, got %d", w.Code)
	}

	w = ts.do("POST", "/v1/auth/register", "", gin.H{"username": "x", "email": "bad", "password": "secret123"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if _, ok := decode[map[string]interface{}](t, w)["details"]; !ok {
		t.Error("Expected validation details")
	}

	w = ts.do("POST", "/v1/auth/login", "", gin.H{"username": "carol", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	w = ts.do("POST", "/v1/auth/login", "", gin.H{"username": "carol", "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	login := decode[models.LoginResponse](t, w)

	req := httptest.NewRequest("GET", "/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if decode[models.Principal](t, rec).Username != "carol" {
		t.Errorf("Unexpected profile: %s", rec.Body.String())
	}

	w = ts.do("GET", "/v1/users/"+bobID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	author := decode[map[string]interface{}](t, w)
	if author["username"] != "bob" {
		t.Errorf("Expected bob, got %v", author["username"])
	}
	if _, ok := author["email"]; ok {
		t.Error("Email must not be exposed on public user lookup")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/v1/comments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/v1/comments", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allowed origin, got %q", got)
	}
}
