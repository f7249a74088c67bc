package httpserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	appmetrics "github.com/taoyao-code/amp-gateway/internal/metrics"
)

func newServer(metricsOn bool) *Server {
	gin.SetMode(gin.TestMode)
	cfg := cfgpkg.HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	return New(cfg, cfgpkg.MetricsConfig{Enable: metricsOn, Path: "/metrics"}, appmetrics.Handler(reg), zap.NewNop())
}

func get(h http.Handler, path string) int {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr.Code
}

func TestMetricsRoute(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(newServer(true).Handler(), "/metrics"))
	assert.Equal(t, http.StatusNotFound, get(newServer(false).Handler(), "/metrics"))
}

func TestRouterRegistration(t *testing.T) {
	srv := newServer(false)
	srv.Router().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	srv.Router().GET("/boom", func(c *gin.Context) { panic("boom") })

	assert.Equal(t, http.StatusOK, get(srv.Handler(), "/ping"))
	assert.Equal(t, http.StatusInternalServerError, get(srv.Handler(), "/boom"))
}

func TestServeAndShutdown(t *testing.T) {
	srv := newServer(true)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
