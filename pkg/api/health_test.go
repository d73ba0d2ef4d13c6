package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func markReady(t *testing.T) {
	t.Helper()
	metrics.UpdateComponent(metrics.ComponentStorage, true, "")
	metrics.UpdateComponent(metrics.ComponentConductor, true, "")
}

// TestHealthHandler tests the /health endpoint
func TestHealthHandler(t *testing.T) {
	s := NewServer(nil, nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{
			name:           "GET request succeeds",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "POST request fails",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "PUT request fails",
			method:         http.MethodPut,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "DELETE request fails",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, s, tt.method, "/health")
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				var response HealthResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "healthy", response.Status)
				assert.False(t, response.Timestamp.IsZero())
				assert.NotEmpty(t, response.Uptime)
			} else {
				assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
			}
		})
	}
}

func TestHealthHandlerUnhealthyComponent(t *testing.T) {
	s := NewServer(nil, nil)

	metrics.UpdateComponent(metrics.ComponentAgent, false, "load failed")
	t.Cleanup(func() { metrics.UpdateComponent(metrics.ComponentAgent, true, "") })

	w := serve(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "unhealthy", response.Status)
}

// TestReadyHandlerNoStore tests readiness without a store
func TestReadyHandlerNoStore(t *testing.T) {
	markReady(t)
	s := NewServer(nil, nil)

	w := serve(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "not initialized", response.Checks["store"])
	assert.NotEmpty(t, response.Message)
}

func TestReadyHandler(t *testing.T) {
	markReady(t)
	store := newTestStore(t)
	s := NewServer(store, nil)

	w := serve(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, "ok", response.Checks["store"])
	assert.Equal(t, "ready", response.Checks[metrics.ComponentConductor])
	assert.False(t, response.Timestamp.IsZero())
}

func TestReadyHandlerConductorDown(t *testing.T) {
	markReady(t)
	metrics.UpdateComponent(metrics.ComponentConductor, false, "stopped")
	t.Cleanup(func() { metrics.UpdateComponent(metrics.ComponentConductor, true, "") })

	s := NewServer(newTestStore(t), nil)
	w := serve(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response.Checks[metrics.ComponentConductor], "stopped")
}

func TestRoutes(t *testing.T) {
	s := NewServer(nil, nil)

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{path: "/health", expectedStatus: http.StatusOK},
		{path: "/ready", expectedStatus: http.StatusServiceUnavailable},
		{path: "/metrics", expectedStatus: http.StatusOK},
		{path: "/status", expectedStatus: http.StatusServiceUnavailable},
		{path: "/nonexistent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(t, s, http.MethodGet, tt.path)
			assert.Equal(t, tt.expectedStatus, w.Code, "Path: %s", tt.path)
		})
	}
}

func TestPathLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/status", "/status"},
		{"/status/myRingGroup", "/status"},
		{"/favicon.ico", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pathLabel(tt.path), tt.path)
	}
}

// TestServerConcurrency tests concurrent requests to health endpoints
func TestServerConcurrency(t *testing.T) {
	s := NewServer(nil, nil)

	done := make(chan int, 20)
	for i := 0; i < 10; i++ {
		go func() {
			done <- serve(t, s, http.MethodGet, "/health").Code
		}()
		go func() {
			done <- serve(t, s, http.MethodGet, "/ready").Code
		}()
	}

	for i := 0; i < 20; i++ {
		assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, <-done)
	}
}

func BenchmarkHealthHandler(b *testing.B) {
	s := NewServer(nil, nil)
	handler := s.Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
