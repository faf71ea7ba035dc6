// Command motiontail connects to a smartcam backend and prints every motion reading
// it receives.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/version"
	"github.com/gorilla/websocket"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	urlFlag     = kingpin.Flag("url", "WebSocket URL of the motion channel.").Short('u').Default("ws://localhost:5001/motion").URL()
	originFlag  = kingpin.Flag("origin", "Origin header to send with the handshake.").String()
	countFlag   = kingpin.Flag("count", "Exit after this many readings (0 = run until interrupted).").Short('n').Default("0").Int()
	rawFlag     = kingpin.Flag("raw", "Print frames exactly as received.").Bool()
	timeoutFlag = kingpin.Flag("timeout", "Handshake timeout.").Default("10s").Duration()
)

type options struct {
	url     string
	origin  string
	count   int
	raw     bool
	timeout time.Duration
}

func main() {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate)
	kingpin.CommandLine.Help = "Print live motion readings from a smartcam backend."
	kingpin.Version(version.Get().String())
	kingpin.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		url:     (*urlFlag).String(),
		origin:  *originFlag,
		count:   *countFlag,
		raw:     *rawFlag,
		timeout: *timeoutFlag,
	}
	if err := tail(ctx, opts, os.Stdout, os.Stderr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// tail prints readings from opts.url to out until opts.count readings arrived, the
// server closes the connection or ctx is cancelled.
func tail(ctx context.Context, opts options, out, errOut io.Writer) error {
	header := http.Header{}
	if opts.origin != "" {
		header.Set("Origin", opts.origin)
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.timeout}
	conn, resp, err := dialer.DialContext(ctx, opts.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connect to %s: %w (HTTP %d)", opts.url, err, resp.StatusCode)
		}
		return fmt.Errorf("connect to %s: %w", opts.url, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on interrupt and say goodbye properly.
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for received := 0; opts.count == 0 || received < opts.count; received++ {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				fmt.Fprintf(errOut, "server closed the connection: %d %s\n", closeErr.Code, closeErr.Text)
				return nil
			}
			return fmt.Errorf("read reading: %w", err)
		}
		printReading(out, errOut, payload, opts.raw)
	}
	return nil
}

func printReading(out, errOut io.Writer, payload []byte, raw bool) {
	if raw {
		fmt.Fprintln(out, string(payload))
		return
	}

	r, err := domain.DecodeReading(payload)
	if err != nil {
		fmt.Fprintf(errOut, "undecodable frame %q: %v\n", payload, err)
		return
	}
	marker := "-"
	if r.MotionDetected() {
		marker = "MOTION"
	}
	fmt.Fprintf(out, "%s  %s\n", r.Timestamp().UTC().Format(time.RFC3339), marker)
}
