package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rgeorge2/hank/pkg/metrics"
)

// ReadOnly rejects every request that is not a GET or HEAD. The API only
// exposes state; changes go through the coordinator.
func ReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isReadOnlyMethod(r.Method) {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isReadOnlyMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument counts requests by path and status code
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(pathLabel(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

// pathLabel keeps the label set bounded: /status/<ring group> counts as /status
func pathLabel(path string) string {
	switch {
	case path == "/health", path == "/ready", path == "/metrics", path == "/status":
		return path
	case strings.HasPrefix(path, "/status/"):
		return "/status"
	default:
		return "other"
	}
}
