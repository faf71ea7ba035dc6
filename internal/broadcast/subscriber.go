package broadcast

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	defaultSendBuffer   = 16
	defaultWriteTimeout = 5 * time.Second
)

var (
	ErrSubscriberClosed = errors.New("subscriber is not open")
	ErrSubscriberSlow   = errors.New("subscriber send buffer full")
)

// Conn is the part of *websocket.Conn a Subscriber uses.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// State is the liveness of a subscriber. Only StateOpen subscribers accept sends.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SubscriberOptions tunes the per-connection writer.
type SubscriberOptions struct {
	// SendBuffer is the number of frames queued before a send counts as failed.
	SendBuffer int
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// PingInterval enables keepalive pings when > 0. A peer that does not answer
	// within two intervals is disconnected.
	PingInterval time.Duration
}

func (o SubscriberOptions) withDefaults() SubscriberOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	return o
}

// Subscriber is one connected viewer. Frames are queued by Send and written by a
// dedicated goroutine, so per-subscriber order equals Send order.
type Subscriber struct {
	id      uuid.UUID
	conn    Conn
	clock   clockwork.Clock
	opts    SubscriberOptions
	metrics *metrics.BroadcastMetrics

	state    atomic.Int32
	sendCh   chan []byte
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSubscriber wraps conn and starts its writer goroutine. The subscriber starts open.
func NewSubscriber(conn Conn, clock clockwork.Clock, opts SubscriberOptions, m *metrics.BroadcastMetrics) *Subscriber {
	opts = opts.withDefaults()
	s := &Subscriber{
		id:      uuid.New(),
		conn:    conn,
		clock:   clock,
		opts:    opts,
		metrics: m,
		sendCh:  make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
	}
	if opts.PingInterval > 0 {
		s.configurePongHandler()
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Subscriber) ID() uuid.UUID { return s.id }

func (s *Subscriber) State() State { return State(s.state.Load()) }

// Send queues payload without blocking. It fails when the subscriber is no longer
// open or its queue is full.
func (s *Subscriber) Send(payload []byte) error {
	if s.State() != StateOpen {
		return ErrSubscriberClosed
	}
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case s.sendCh <- payload:
		return nil
	default:
		return ErrSubscriberSlow
	}
}

func (s *Subscriber) run() {
	defer s.wg.Done()

	var pingCh <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := s.clock.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		pingCh = ticker.Chan()
	}

	for {
		select {
		case msg := <-s.sendCh:
			start := s.clock.Now()
			_ = s.conn.SetWriteDeadline(start.Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.fail("write failed", err)
				return
			}
			if s.metrics != nil {
				s.metrics.FrameWriteDuration.Observe(s.clock.Since(start).Seconds())
			}
		case <-pingCh:
			deadline := s.clock.Now().Add(s.opts.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if s.metrics != nil {
					s.metrics.PingFailures.Inc()
				}
				s.fail("ping failed", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// fail marks the subscriber as closing and closes the transport, which unblocks the
// read loop owning this subscriber so it can detach it.
func (s *Subscriber) fail(msg string, err error) {
	s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
	slog.Debug("Subscriber transport "+msg, "subscriber_id", s.id.String(), "error", err)
	_ = s.conn.Close()
}

// stop terminates the writer and closes the connection without a close frame.
func (s *Subscriber) stop() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		close(s.done)
		_ = s.conn.Close()
		s.wg.Wait()
		s.state.Store(int32(StateClosed))
	})
}

// closeGraceful sends a close frame with code and reason before closing.
func (s *Subscriber) closeGraceful(code int, reason string) {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		close(s.done)

		// The writer must exit before the close frame goes out.
		s.wg.Wait()

		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, s.clock.Now().Add(s.opts.WriteTimeout))
		_ = s.conn.Close()
		s.state.Store(int32(StateClosed))
	})
}

// awaitClose blocks reading inbound frames until the peer closes or the transport
// fails. Inbound payloads carry no meaning and are dropped.
func (s *Subscriber) awaitClose() error {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return err
		}
		s.extendReadDeadline()
	}
}

func (s *Subscriber) configurePongHandler() {
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})
}

func (s *Subscriber) extendReadDeadline() {
	if s.opts.PingInterval <= 0 {
		return
	}
	_ = s.conn.SetReadDeadline(s.clock.Now().Add(2 * s.opts.PingInterval))
}
