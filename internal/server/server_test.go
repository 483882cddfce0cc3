package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/mocks"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(staticDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: "http://localhost:3000, https://app.example.com",
			StaticDir:      staticDir,
		},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
		Auth: config.AuthConfig{OTPTTL: 10 * time.Minute},
	}
}

func newTestHandler(t *testing.T, staticDir string) http.Handler {
	t.Helper()
	return NewRouter(Options{
		Config:  testConfig(staticDir),
		DB:      testutil.NewDB(t),
		Log:     zap.NewNop(),
		Mailer:  mocks.NewMockMailer(gomock.NewController(t)),
		Metrics: metrics.New(),
		Hasher:  auth.NewPasswordHasher(bcrypt.MinCost),
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	h := newTestHandler(t, "")

	for _, path := range []string{"/health", "/api/health"} {
		w := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, "")

	for _, path := range []string{"/api/tasks", "/api/teams", "/api/users", "/api/reports", "/api/activity-logs", "/api/auth/me"} {
		w := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_CORS(t *testing.T) {
	h := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := serve(h, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(h, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestHandler(t, "")

	serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `team_task_api_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestHandler(t, "")

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}

func TestRouter_StaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	h := newTestHandler(t, dir)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = serve(h, httptest.NewRequest(http.MethodGet, "/teams/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "app"))

	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.ServerConfig{Port: "0", ShutdownTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
