package main

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// connection is one live real-time client. It has two states: subscribed,
// from run() until the transport errors or closes, and gone. There is no
// explicit disconnect handshake; the hub drops the connection when its
// reader returns or its send buffer fills.
type connection struct {
	id    uuid.UUID
	send  chan []byte
	h     *hub
	w     websocketManager
	pings *pingTicker
	log   *slog.Logger
}

func newConnection(w websocketManager, h *hub, pings *pingTicker, log *slog.Logger) *connection {
	id := uuid.New()
	return &connection{
		id:    id,
		send:  make(chan []byte, 256),
		w:     w,
		h:     h,
		pings: pings,
		log:   log.With("conn_id", id),
	}
}

func (c *connection) run() {
	c.h.queue <- command{op: SUBSCRIBE, conn: c}
	incr("websockets", 1)
	c.log.Info("client connected")
	defer func() {
		decr("websockets", 1)
		c.log.Info("client disconnected")
		c.h.queue <- command{op: UNSUBSCRIBE, conn: c}
	}()
	c.w.wsSetReadLimit()
	c.w.wsSetReadDeadline()
	c.w.wsSetPongHandler()
	go c.writer()
	c.reader()
}

func (c *connection) reader() {
	for {
		if err := c.readFrame(); err != nil {
			break
		}
	}
	c.w.wsClose()
}

func (c *connection) readFrame() error {
	_, frame, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	incr("conn.recv", 1)
	c.relay(frame)
	return nil
}

// relay routes one received frame. Broadcast events forward the original
// frame bytes, so what every subscriber receives is bit-identical to what
// the emitter sent; the data is never inspected. A frame that isn't an
// event envelope has no meaning on this channel and is dropped without
// disturbing the sender.
func (c *connection) relay(frame []byte) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		mark("relay.undecodable", 1)
		c.log.Debug("dropping undecodable frame", "size", len(frame))
		return
	}
	switch env.Event {
	case eventRegister, eventMessage:
		incr("relay."+string(env.Event), 1)
		c.h.queue <- command{op: PUBLISH, frame: frame}
	case eventSession, eventLogout:
		// Reserved events: accepted, no observable effect.
		incr("relay."+string(env.Event), 1)
	default:
		mark("relay.unknown", 1)
		c.log.Debug("dropping unknown event", "event", string(env.Event))
	}
}

func (c *connection) writer() {
	sub := c.pings.subscribe()
	defer c.pings.unsubscribe(sub)
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.w.wsClose()
				return
			}
			c.w.wsSetWriteDeadline()
			if err := c.w.wsWriteMessage(websocket.TextMessage, frame); err != nil {
				c.w.wsClose()
				return
			}
			incr("conn.send", 1)
		case _, ok := <-sub.tick:
			if !ok {
				c.w.wsClose()
				return
			}
			c.w.wsSetWriteDeadline()
			if err := c.w.wsWriteMessage(websocket.PingMessage, nil); err != nil {
				c.w.wsClose()
				return
			}
		}
	}
}
