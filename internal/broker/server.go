// ABOUTME: Development broker assembling store, hub, token issuing, and transport.
// ABOUTME: Serves the websocket attendance channel and accepts check-in commands.

package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/shiftline/presence/internal/auth"
	"github.com/shiftline/presence/internal/config"
	"github.com/shiftline/presence/internal/dedupe"
	"github.com/shiftline/presence/internal/realtime"
	"github.com/shiftline/presence/internal/records"
)

const (
	// nonceTTL is how long a command nonce is remembered for dedupe.
	nonceTTL = 5 * time.Minute
	// nonceCacheSize bounds the dedupe cache.
	nonceCacheSize = 10000
	// wsHandshakeTimeout bounds the connect-frame exchange.
	wsHandshakeTimeout = 10 * time.Second
)

// Broker is the development attendance service: profile/roster HTTP API
// plus the realtime channel, backed by SQLite.
type Broker struct {
	cfg    *config.Config
	store  *Store
	issuer *auth.TokenIssuer
	hub    *Hub
	nonces *dedupe.Cache
	logger *slog.Logger
}

// New assembles a broker from its parts. Pass nil logger for default.
func New(cfg *config.Config, store *Store, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		cfg:    cfg,
		store:  store,
		issuer: auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret)),
		hub:    NewHub(logger),
		nonces: dedupe.New(nonceTTL, nonceCacheSize),
		logger: logger.With("component", "broker"),
	}
}

// Handler returns the broker's HTTP handler, covering the JSON API and
// the /ws realtime endpoint.
func (b *Broker) Handler() http.Handler {
	mux := http.NewServeMux()
	b.registerAPIRoutes(mux)
	mux.HandleFunc("/ws", b.handleWebsocket)
	return mux
}

// Close releases broker resources.
func (b *Broker) Close() {
	b.hub.Close()
	b.nonces.Close()
}

// handleWebsocket runs one realtime session: handshake, inbound command
// loop, and outbound broadcast delivery.
func (b *Broker) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx := r.Context()

	identity, err := b.wsHandshake(ctx, conn)
	if err != nil {
		b.logger.Debug("websocket handshake rejected", "error", err)
		return
	}

	b.logger.Info("realtime session opened", "identity", identity)
	defer b.logger.Info("realtime session closed", "identity", identity)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, _ := b.hub.Subscribe(subCtx)

	// All writes go through one goroutine: broadcasts and command
	// rejections share the socket.
	outbound := make(chan realtime.Frame, subscriberBufferSize)
	go b.writeLoop(subCtx, conn, events, outbound)

	b.readLoop(subCtx, conn, outbound)
}

// wsHandshake reads the connect frame, verifies the bearer token, and
// acknowledges. Returns the authenticated subject.
func (b *Broker) wsHandshake(ctx context.Context, conn *websocket.Conn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, wsHandshakeTimeout)
	defer cancel()

	var connect realtime.Frame
	if err := wsjson.Read(ctx, conn, &connect); err != nil {
		return "", err
	}
	if connect.Type != realtime.FrameConnect {
		_ = wsjson.Write(ctx, conn, realtime.Frame{Type: realtime.FrameError, Error: "expected connect frame"})
		return "", errUnexpectedFrame(connect.Type)
	}

	claims, err := b.issuer.Verify(connect.Token)
	if err != nil {
		_ = wsjson.Write(ctx, conn, realtime.Frame{Type: realtime.FrameError, Error: "invalid token"})
		return "", err
	}

	if err := wsjson.Write(ctx, conn, realtime.Frame{Type: realtime.FrameConnected}); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// readLoop consumes inbound frames until the connection drops.
func (b *Broker) readLoop(ctx context.Context, conn *websocket.Conn, outbound chan<- realtime.Frame) {
	for {
		var frame realtime.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}

		if frame.Type != realtime.FrameSend || frame.Destination != realtime.CommandAttendance {
			b.logger.Debug("ignoring frame", "type", frame.Type, "destination", frame.Destination)
			continue
		}

		if msg := b.handleCommand(ctx, frame); msg != "" {
			select {
			case outbound <- realtime.Frame{Type: realtime.FrameError, Error: msg}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleCommand validates, persists, and broadcasts one attendance
// command. Returns a rejection message, or "" on success.
func (b *Broker) handleCommand(ctx context.Context, frame realtime.Frame) string {
	if frame.Nonce != "" && b.nonces.Seen(frame.Nonce) {
		b.logger.Debug("dropping duplicate command", "nonce", frame.Nonce)
		return ""
	}

	var event records.AttendanceEvent
	if err := json.Unmarshal(frame.Body, &event); err != nil {
		return "malformed attendance command"
	}
	if err := event.Validate(); err != nil {
		return err.Error()
	}

	if !withinGeofence(b.cfg.Company, event.Latitude, event.Longitude) {
		b.logger.Info("attendance rejected by geofence",
			"employee", event.EmployeeID,
			"latitude", event.Latitude,
			"longitude", event.Longitude)
		return "you are outside the allowed check-in area"
	}

	// The broker, not the client, is authoritative for id and time.
	event.ID = 0
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	accepted, err := b.store.InsertAttendance(ctx, event)
	if err != nil {
		b.logger.Error("persisting attendance failed", "error", err)
		return "could not record attendance"
	}

	b.hub.Publish(accepted)
	b.logger.Info("attendance recorded",
		"id", accepted.ID,
		"employee", accepted.EmployeeID,
		"kind", accepted.Kind)
	return ""
}

// writeLoop serializes all socket writes: hub broadcasts and rejections.
func (b *Broker) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan records.AttendanceEvent, outbound <-chan realtime.Frame) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			body, err := json.Marshal(event)
			if err != nil {
				continue
			}
			frame := realtime.Frame{
				Type:        realtime.FrameMessage,
				Destination: realtime.TopicAttendance,
				Body:        body,
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return
			}

		case frame := <-outbound:
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return
			}
		}
	}
}

// errUnexpectedFrame is a tiny error type keeping handshake logs precise.
type errUnexpectedFrame string

func (e errUnexpectedFrame) Error() string {
	return "unexpected frame type " + string(e)
}
