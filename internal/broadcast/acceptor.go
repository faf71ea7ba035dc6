package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Viewers only send control frames; anything larger is a protocol violation.
const maxInboundMessageSize = 4096

// AcceptorConfig configures connection handling.
type AcceptorConfig struct {
	// CheckOrigin decides whether a browser origin may connect. nil accepts all origins.
	CheckOrigin func(r *http.Request) bool
	Subscriber  SubscriberOptions
}

// Acceptor upgrades HTTP requests and drives each resulting connection until it closes.
type Acceptor struct {
	engine   *Engine
	upgrader websocket.Upgrader
	clock    clockwork.Clock
	opts     SubscriberOptions
	metrics  *metrics.BroadcastMetrics
}

func NewAcceptor(engine *Engine, cfg AcceptorConfig, clock clockwork.Clock, m *metrics.BroadcastMetrics) *Acceptor {
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Acceptor{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clock:   clock,
		opts:    cfg.Subscriber,
		metrics: m,
	}
}

// Accept handles one connection attempt.
//
// A request that is not a WebSocket upgrade returns domain.ErrUpgradeRejected before
// anything is written; the caller must answer it with 400. A failed handshake returns
// an error wrapping domain.ErrHandshakeFailed after the upgrader already responded.
// Otherwise Accept blocks for the lifetime of the connection and returns nil: transport
// failures after the upgrade are handled here and never reach the caller.
func (a *Acceptor) Accept(w http.ResponseWriter, r *http.Request) error {
	if !websocket.IsWebSocketUpgrade(r) {
		a.reject(metrics.ReasonNotUpgrade)
		return domain.ErrUpgradeRejected
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.reject(metrics.ReasonHandshake)
		return fmt.Errorf("%w: %w", domain.ErrHandshakeFailed, err)
	}
	conn.SetReadLimit(maxInboundMessageSize)

	a.serve(r.Context(), NewSubscriber(conn, a.clock, a.opts, a.metrics), r.RemoteAddr)
	return nil
}

func (a *Acceptor) serve(ctx context.Context, sub *Subscriber, remoteAddr string) {
	logger := slog.With("subscriber_id", sub.ID().String(), "remote_addr", remoteAddr)

	if err := a.engine.Attach(sub); err != nil {
		if errors.Is(err, domain.ErrEngineStopped) {
			a.reject(metrics.ReasonStopped)
			sub.closeGraceful(websocket.CloseTryAgainLater, "server shutting down")
		} else {
			sub.stop()
		}
		logger.WarnContext(ctx, "Subscriber not attached", "error", err)
		return
	}
	logger.InfoContext(ctx, "Subscriber connected", "subscribers", a.engine.SubscriberCount())

	err := sub.awaitClose()

	removed := a.engine.Detach(sub)
	reason := disconnectReason(err)
	if a.metrics != nil {
		a.metrics.Disconnects.WithLabelValues(reason).Inc()
	}
	if reason == metrics.ReasonClosed {
		logger.InfoContext(ctx, "Subscriber disconnected", "subscribers", a.engine.SubscriberCount())
	} else {
		logger.InfoContext(ctx, "Subscriber dropped", "reason", reason, "error", err, "already_pruned", !removed, "subscribers", a.engine.SubscriberCount())
	}
}

// disconnectReason classifies the error that ended a read loop. A timeout means the
// peer stopped answering keepalive pings.
func disconnectReason(err error) string {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return metrics.ReasonClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.ReasonTimeout
	}
	return metrics.ReasonTransport
}

func (a *Acceptor) reject(reason string) {
	if a.metrics != nil {
		a.metrics.ConnectionsRejected.WithLabelValues(reason).Inc()
	}
}
