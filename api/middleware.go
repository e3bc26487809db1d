package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// MaxBodySize limits request bodies, photos included.
const MaxBodySize = 2 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusRecorder keeps the status code for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging wraps a handler with request logging
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		s.log.Infof("%s %s  status: %d  remote: %s  duration: %s",
			r.Method, r.URL.Path, rec.status, s.clientIP(r), time.Since(start))
	}
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode JSON response: %s", err)
	}
}

// errorMessage writes a JSON error response
func (s *Server) errorMessage(w http.ResponseWriter, statusCode int, message string) {
	s.jsonResponse(w, statusCode, errorResponse{Error: message})
}

// parseJSONBody parses the request body into v
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientIP(r *http.Request) string {
	return GetClientIP(r, s.trustProxy)
}

// GetClientIP extracts the client IP address
// With trustProxy it checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
// Without it the headers are client controlled and ignored.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Take first IP in the load balancer chain
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexAny(xff, ", "); i >= 0 {
				return xff[:i]
			}
			return xff
		}

		// nginx
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	// Strip port if present
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}
