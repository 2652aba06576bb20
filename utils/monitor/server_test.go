package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: "routegas",
		Name:      "test_total",
		Help:      "test counter",
	}).Add(3)

	srv, err := NewServer("127.0.0.1:0", reg, zaptest.NewLogger(t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "routegas_test_total 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewServerTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewServer(":0", reg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = NewServer(":0", reg, zaptest.NewLogger(t))
	assert.NoError(t, err)
}
