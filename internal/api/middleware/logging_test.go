package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/api/middleware"
)

func TestLogger_FieldsAndLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "success logs info", status: http.StatusOK, level: "info"},
		{name: "client error logs warn", status: http.StatusNotFound, level: "warn"},
		{name: "server error logs error", status: http.StatusBadGateway, level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf)

			r := chi.NewRouter()
			r.Use(middleware.Logger(log))
			r.Get("/v1/watches/{watchId}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/watches/w-1", http.NoBody))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, "/v1/watches/w-1", entry["path"])
			assert.Equal(t, "/v1/watches/{watchId}", entry["route"], "aggregation key uses the pattern, not the ID")
		})
	}
}
