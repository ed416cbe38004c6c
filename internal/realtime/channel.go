// ABOUTME: Owns the realtime publish/subscribe connection lifecycle for one identity.
// ABOUTME: Dials, handshakes, filters inbound events, and gates outbound publishes.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/shiftline/presence/internal/records"
)

// Channel errors
var (
	// ErrNotConnected is returned by Publish while the channel is not in
	// the Connected state. Callers surface it as status text, not a crash.
	ErrNotConnected = errors.New("not connected to attendance channel")
	// ErrIdentityMismatch is returned by Connect when the channel is
	// already serving a different identity; Disconnect first.
	ErrIdentityMismatch = errors.New("channel already connected for another identity")
)

// handshakeTimeout bounds the connect-frame round trip, and writeTimeout
// bounds a single publish.
const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// State is the observable connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

// String renders the state for status lines and logs.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Sink receives inbound attendance events that passed the identity filter.
// *records.Store satisfies it.
type Sink interface {
	Ingest(event records.AttendanceEvent)
}

// Config configures a Channel.
type Config struct {
	// Endpoint is the fixed websocket URL of the broker, e.g.
	// "ws://localhost:8080/ws".
	Endpoint string
	// Sink receives filtered inbound events.
	Sink Sink
	// OnServerError, when set, is invoked with broker rejection messages
	// (error frames) so the UI can show them.
	OnServerError func(msg string)
	Logger        *slog.Logger
}

// Channel supervises one websocket connection to the attendance broker.
// The broker broadcasts every event to every subscriber; the channel
// enforces per-user visibility by dropping events whose employee id does
// not match the identity it was connected for. That filter is a client
// responsibility, not a transport one.
type Channel struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	identity string
	conn     *websocket.Conn
	stopRead context.CancelFunc
	gen      int // bumped on every connect/disconnect so stale read loops stand down
}

// NewChannel creates a disconnected channel.
func NewChannel(cfg Config) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger.With("component", "realtime"),
	}
}

// Status returns the current connection state.
func (c *Channel) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity the channel is serving, or "".
func (c *Channel) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Connect opens the transport for the given identity and subscribes to the
// shared attendance topic. It is a no-op when identity is empty, and a
// no-op when already Connecting or Connected for the same identity. There
// is no automatic retry: after a Failed observation, the next Connect call
// (typically from a fresh mount) is the retry.
func (c *Channel) Connect(ctx context.Context, identity, token string) error {
	if identity == "" {
		c.logger.Debug("connect skipped, no identity resolved")
		return nil
	}

	c.mu.Lock()
	switch c.state {
	case Connecting, Connected:
		sameIdentity := c.identity == identity
		c.mu.Unlock()
		if sameIdentity {
			return nil
		}
		return ErrIdentityMismatch
	}
	c.state = Connecting
	c.identity = identity
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.handshake(ctx, token)
	if err != nil {
		c.fail(gen)
		return fmt.Errorf("connecting attendance channel: %w", err)
	}

	readCtx, stopRead := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.gen != gen {
		// Torn down while we were dialing.
		c.mu.Unlock()
		stopRead()
		conn.Close(websocket.StatusNormalClosure, "superseded")
		return nil
	}
	c.state = Connected
	c.conn = conn
	c.stopRead = stopRead
	c.mu.Unlock()

	c.logger.Info("attendance channel connected", "identity", identity)

	go c.readLoop(readCtx, conn, identity, gen)
	return nil
}

// handshake dials the endpoint and performs the connect/connected exchange.
func (c *Channel) handshake(ctx context.Context, token string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.cfg.Endpoint, err)
	}

	if err := wsjson.Write(ctx, conn, Frame{Type: FrameConnect, Token: token}); err != nil {
		conn.Close(websocket.StatusProtocolError, "handshake write failed")
		return nil, fmt.Errorf("sending connect frame: %w", err)
	}

	var ack Frame
	if err := wsjson.Read(ctx, conn, &ack); err != nil {
		conn.Close(websocket.StatusProtocolError, "handshake read failed")
		return nil, fmt.Errorf("awaiting connected frame: %w", err)
	}
	if ack.Type != FrameConnected {
		conn.Close(websocket.StatusProtocolError, "handshake rejected")
		if ack.Type == FrameError && ack.Error != "" {
			return nil, fmt.Errorf("broker rejected connect: %s", ack.Error)
		}
		return nil, fmt.Errorf("unexpected handshake frame %q", ack.Type)
	}

	return conn, nil
}

// readLoop delivers inbound topic messages to the sink until the
// connection drops or Disconnect cancels it.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, identity string, gen int) {
	for {
		var frame Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil {
				// Explicit teardown; Disconnect already updated state.
				return
			}
			c.logger.Warn("attendance channel dropped", "error", err)
			c.fail(gen)
			return
		}

		switch frame.Type {
		case FrameMessage:
			if frame.Destination != TopicAttendance {
				continue
			}
			var event records.AttendanceEvent
			if err := json.Unmarshal(frame.Body, &event); err != nil {
				c.logger.Warn("discarding malformed topic message", "error", err)
				continue
			}
			// The topic carries everyone's events; only this identity's
			// belong in the local store.
			if event.EmployeeID != identity {
				c.logger.Debug("filtered foreign event",
					"event_employee", event.EmployeeID,
					"identity", identity)
				continue
			}
			if c.cfg.Sink != nil {
				c.cfg.Sink.Ingest(event)
			}

		case FrameError:
			c.logger.Warn("broker reported error", "message", frame.Error)
			if c.cfg.OnServerError != nil {
				c.cfg.OnServerError(frame.Error)
			}

		default:
			c.logger.Debug("ignoring frame", "type", frame.Type)
		}
	}
}

// Publish sends an attendance event to the broker's command address. It
// never queues: when the channel is not Connected the event is dropped and
// ErrNotConnected returned for the caller to surface.
func (c *Channel) Publish(event records.AttendanceEvent) error {
	c.mu.Lock()
	if c.state != Connected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	frame := Frame{
		Type:        FrameSend,
		Destination: CommandAttendance,
		Nonce:       uuid.New().String(),
		Body:        body,
	}
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	c.logger.Debug("event published", "kind", event.Kind, "nonce", frame.Nonce)
	return nil
}

// Disconnect tears the connection down. It is mandatory on identity change
// and on unmount of the owning view; an open transport must never outlive
// its session. Safe to call repeatedly and while disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	stopRead := c.stopRead
	c.conn = nil
	c.stopRead = nil
	c.state = Disconnected
	c.identity = ""
	c.gen++
	c.mu.Unlock()

	if stopRead != nil {
		stopRead()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
		c.logger.Info("attendance channel disconnected")
	}
}

// fail records a transport failure observation for the given connection
// generation. A newer generation (reconnect or teardown) wins.
func (c *Channel) fail(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	stopRead := c.stopRead
	c.state = Failed
	c.conn = nil
	c.stopRead = nil
	c.mu.Unlock()

	if stopRead != nil {
		stopRead()
	}
	if conn != nil {
		conn.Close(websocket.StatusInternalError, "transport failure")
	}
}
