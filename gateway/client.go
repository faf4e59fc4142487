// Package gateway exposes the relay over WebSocket: one upgrade endpoint,
// one read pump and one write pump per connection, JSON frames on the wire.
package gateway

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"chat-relay/sink"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Conn wraps one upgraded WebSocket connection. The read pump turns frames
// into relay commands; the write pump drains the connection's sink back
// onto the socket.
type Conn struct {
	log      *slog.Logger
	ws       *websocket.Conn
	service  services.IRelayService
	sink     *sink.ConnSink
	validate *validator.Validate
	id       domain.ConnectionID
	// identity, when set from a validated handshake token, overrides the
	// client-chosen display name at join time.
	identity       string
	maxMessageSize int64
	done           chan struct{}
}

func newConn(log *slog.Logger, ws *websocket.Conn, service services.IRelayService,
	connSink *sink.ConnSink, validate *validator.Validate,
	id domain.ConnectionID, identity string, maxMessageSize int64) *Conn {
	return &Conn{
		log:            log,
		ws:             ws,
		service:        service,
		sink:           connSink,
		validate:       validate,
		id:             id,
		identity:       identity,
		maxMessageSize: maxMessageSize,
		done:           make(chan struct{}),
	}
}

// readPump consumes inbound frames until the socket dies, then reports the
// disconnect. It runs on the HTTP handler goroutine.
func (c *Conn) readPump() {
	defer func() {
		close(c.done)
		c.service.Disconnect(c.id)
		c.service.Detach(c.id)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(c.maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected socket close", "conn", c.id, "error", err)
			}
			return
		}

		if err := c.handleFrame(raw); err != nil {
			// Malformed frames are logged and skipped, never fatal for
			// the connection or for the relay loop.
			c.log.Debug("Dropping inbound frame", "conn", c.id, "error", err)
		}
	}
}

func (c *Conn) handleFrame(raw []byte) error {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedFramePayload, err)
	}

	switch frame.Event {
	case EventJoinRoom:
		var payload JoinPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrMalformedFramePayload, err)
		}
		if err := c.validate.Struct(payload); err != nil {
			return err
		}
		displayName := payload.Username
		if c.identity != "" {
			displayName = c.identity
		}
		c.service.Join(c.id, displayName, payload.Room)
		return nil

	case EventLeaveRoom:
		c.service.Leave(c.id)
		return nil

	case EventChatMessage:
		var payload ChatPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrMalformedFramePayload, err)
		}
		if err := c.validate.Struct(payload); err != nil {
			return err
		}
		c.service.PostMessage(c.id, payload.Text)
		return nil

	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownFrame, frame.Event)
	}
}

// writePump pushes sink events and keepalive pings onto the socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case evt := <-c.sink.Events:
			frame, err := EncodeEvent(evt)
			if err != nil {
				c.log.Error("Failed to encode outbound event", "conn", c.id, "error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.log.Debug("Write failed, closing connection", "conn", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
