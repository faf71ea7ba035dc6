package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/broadcast"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/config"
	apperrors "github.com/afrodev/NoTrust-iot-smartcam/internal/platform/errors"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestHandleMotionSocket_PlainRequestIsBadRequest(t *testing.T) {
	acceptor := &fakeAcceptor{err: domain.ErrUpgradeRejected}
	srv := newTestServer(t, withAcceptor(acceptor))

	for _, path := range []string{"/motion", "/api/motion"} {
		rec := do(srv, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.TypeValidation, resp.Type)
	}
	assert.Equal(t, 2, acceptor.calls)
	assert.Zero(t, srv.limits.Current(), "plain requests must not hold a connection slot")
}

func TestHandleMotionSocket_HandshakeFailureWritesNothingMore(t *testing.T) {
	acceptor := &fakeAcceptor{err: fmt.Errorf("%w: bad version", domain.ErrHandshakeFailed)}
	srv := newTestServer(t, withAcceptor(acceptor))

	rec := do(srv, upgradeRequest("/motion"))

	assert.Empty(t, rec.Body.String())
	assert.Zero(t, srv.limits.Current())
}

func TestHandleMotionSocket_ConnectionLimit(t *testing.T) {
	acceptor := &fakeAcceptor{}
	srv := newTestServer(t, withAcceptor(acceptor), withConfig(func(c *config.Config) {
		c.MaxWebSocketConnections = 1
	}))

	var nested *httptest.ResponseRecorder
	acceptor.onAccept = func() {
		acceptor.onAccept = nil
		nested = do(srv, upgradeRequest("/motion"))
	}

	do(srv, upgradeRequest("/motion"))

	require.NotNil(t, nested)
	assert.Equal(t, http.StatusServiceUnavailable, nested.Code)
	assert.Contains(t, nested.Body.String(), "global_limit")
	assert.Equal(t, 1, acceptor.calls, "rejected viewer must not reach the acceptor")
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.broadcastMetrics.ConnectionsRejected.WithLabelValues(metrics.ReasonCapacity)))
	assert.Zero(t, srv.limits.Current(), "slot is released after the viewer leaves")
}

func TestHandleLatestReading(t *testing.T) {
	srv := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/motion/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"timestamp":"2024-07-01T09:30:00Z","motionDetected":true}`, rec.Body.String())
}

// End to end through echo, the acceptor and the engine.
func TestMotionSocket_LiveViewer(t *testing.T) {
	reg := prometheus.NewRegistry()
	bm := metrics.NewBroadcastMetrics(reg)
	clock := clockwork.NewRealClock()
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	engine := broadcast.NewEngine(broadcast.NewRegistry(), broadcast.NewStateCache(domain.InitialReading(start)), clock, bm)
	acceptor := broadcast.NewAcceptor(engine, broadcast.AcceptorConfig{}, clock, bm)
	t.Cleanup(func() { engine.Shutdown("test finished") })

	srv := NewServer(testConfig(), Deps{Acceptor: acceptor, Readings: engine, Registry: reg, BroadcastMetrics: bm})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/motion"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() domain.Reading {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		r, err := domain.DecodeReading(payload)
		require.NoError(t, err)
		return r
	}

	assert.True(t, domain.InitialReading(start).Equal(read()))

	require.Eventually(t, func() bool { return engine.SubscriberCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	next := domain.NewReading(start.Add(5*time.Second), true)
	require.NoError(t, engine.Publish(next))
	assert.True(t, next.Equal(read()))

	resp, err := http.Get(ts.URL + "/api/motion/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	var latest domain.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	assert.True(t, next.Equal(latest))

	plain, err := http.Get(ts.URL + "/motion")
	require.NoError(t, err)
	defer plain.Body.Close()
	assert.Equal(t, http.StatusBadRequest, plain.StatusCode)
	assert.Equal(t, 1, engine.SubscriberCount())
}

func TestHandleMotionSocket_PerIPLimitIgnoresForwardedFor(t *testing.T) {
	acceptor := &fakeAcceptor{}
	srv := newTestServer(t, withAcceptor(acceptor), withConfig(func(c *config.Config) {
		c.MaxWebSocketConnectionsPerIP = 1
	}))

	var nested *httptest.ResponseRecorder
	acceptor.onAccept = func() {
		acceptor.onAccept = nil
		req := upgradeRequest("/motion")
		req.Header.Set("X-Forwarded-For", "203.0.113.99")
		req.Header.Set("X-Real-IP", "203.0.113.99")
		nested = do(srv, req)
	}

	first := upgradeRequest("/motion")
	first.Header.Set("X-Forwarded-For", "198.51.100.7")
	do(srv, first)

	require.NotNil(t, nested)
	assert.Equal(t, http.StatusServiceUnavailable, nested.Code)
	assert.Contains(t, nested.Body.String(), "per_ip_limit")
	assert.Equal(t, 1, acceptor.calls)
}
