package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
)

var testReading = domain.NewReading(time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC), true)

type fakeAcceptor struct {
	err   error
	calls int
	// onAccept runs inside Accept, while the connection slot is held.
	onAccept func()
}

func (f *fakeAcceptor) Accept(w http.ResponseWriter, _ *http.Request) error {
	f.calls++
	if f.onAccept != nil {
		f.onAccept()
	}
	return f.err
}

type fixedReadings struct{ r domain.Reading }

func (f fixedReadings) Current() domain.Reading { return f.r }

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                       "development",
		Port:                         "0",
		SessionSecret:                "test-secret-key-32-bytes-long!!!",
		SessionMaxAge:                time.Hour,
		CORSAllowedOrigins:           []string{"http://localhost:3000"},
		MaxWebSocketConnections:      10,
		MaxWebSocketConnectionsPerIP: 10,
		RateLimitPerSecond:           100,
		RateLimitBurst:               100,
	}
}

type serverOption func(*config.Config, *Deps)

func withAcceptor(a motionAcceptor) serverOption {
	return func(_ *config.Config, d *Deps) { d.Acceptor = a }
}

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(_ *config.Config, d *Deps) { d.HealthChecks = checks }
}

func withConfig(mutate func(*config.Config)) serverOption {
	return func(c *config.Config, _ *Deps) { mutate(c) }
}

func newTestServer(t *testing.T, opts ...serverOption) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	deps := Deps{
		Acceptor:         &fakeAcceptor{},
		Readings:         fixedReadings{r: testReading},
		Registry:         reg,
		BroadcastMetrics: metrics.NewBroadcastMetrics(reg),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}
	return NewServer(cfg, deps)
}

// do sends req through the full middleware stack.
func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
