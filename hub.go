package main

import (
	"fmt"
)

type op int

const (
	SUBSCRIBE op = iota
	UNSUBSCRIBE
	PUBLISH
)

type command struct {
	op    op
	conn  *connection
	frame []byte
}

type queue chan command

type connections map[*connection]interface {
}

// hub owns the set of live connections. All mutation happens on the run
// goroutine, so the set needs no locking; everything else talks to the hub
// through its command queue.
type hub struct {
	queue       queue
	connections connections
}

func newHub() *hub {
	return &hub{
		queue:       make(queue, 16),
		connections: make(connections),
	}
}

func (h *hub) run() {
	for cmd := range h.queue {
		switch cmd.op {
		case SUBSCRIBE:
			h.subscribe(cmd.conn)
		case UNSUBSCRIBE:
			h.unsubscribe(cmd.conn)
		case PUBLISH:
			h.publish(cmd.frame)
		default:
			panic(fmt.Sprintf("unexpected hub cmd: %v\n", cmd))
		}
	}
}

func (h *hub) subscribe(conn *connection) {
	h.connections[conn] = nil
	incr("connections", 1)
}

func (h *hub) unsubscribe(conn *connection) {
	if _, ok := h.connections[conn]; !ok {
		return
	}
	close(conn.send)
	delete(h.connections, conn)
	decr("connections", 1)
}

// publish fans a frame out to every live connection, the sender included.
// That the sender hears its own events is part of the contract, not an
// oversight. Delivery is fire-and-forget: a connection that can't keep up
// is dropped rather than waited on.
func (h *hub) publish(frame []byte) {
	if len(frame) == 0 {
		return
	}
	for conn := range h.connections {
		select {
		case conn.send <- frame:
		default:
			h.unsubscribe(conn)
			mark("drops", 1)
		}
	}
}
