package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cargowatch/cargowatch/internal/api/middleware"
)

func TestRequestID_Generated(t *testing.T) {
	var captured string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.NotEmpty(t, captured)
	assert.Contains(t, captured, "req_")
	assert.Equal(t, captured, w.Header().Get("X-Request-Id"))
}

func TestRequestID_Propagated(t *testing.T) {
	var captured string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-Id", "req_from_upstream")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req_from_upstream", captured)
	assert.Equal(t, "req_from_upstream", w.Header().Get("X-Request-Id"))
}

func TestRequestID_ReplacesMalformedInboundID(t *testing.T) {
	long := make([]byte, 70)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		inbound string
	}{
		{name: "control characters", inbound: "req\n_injected"},
		{name: "spaces", inbound: "req id"},
		{name: "too long", inbound: string(long)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("X-Request-Id", tt.inbound)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.NotEqual(t, tt.inbound, captured)
			assert.Contains(t, captured, "req_")
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
