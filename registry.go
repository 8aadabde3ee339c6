package main

import (
	"github.com/gorilla/websocket"
)

// client is one live connection plus its attachment: the role it holds
// and, for players, the identity it is bound to. The attachment is only
// ever touched from the room's event loop, and is rebuilt from persisted
// state on reconnection rather than trusted to process memory.
type client struct {
	conn *websocket.Conn
	send chan any

	role          string
	playerID      string
	authenticated bool
}

func newClient(conn *websocket.Conn, role string) *client {
	return &client{
		conn: conn,
		send: make(chan any, 16),
		role: role,

		// Hosts prove the room secret before the upgrade; players
		// authenticate with their first connect message.
		authenticated: role == roleHost,
	}
}

// joined reports whether this connection is bound to a player record.
func (c *client) joined() bool {
	return c.role == rolePlayer && c.playerID != ""
}

// readPump feeds inbound messages to the room actor. Every send selects
// on the actor's done channel: a reaped actor no longer drains its
// channels, and an unguarded send would block this goroutine forever.
func (c *client) readPump(s *session) {
	defer func() {
		select {
		case s.unreg <- c:
		case <-s.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case s.inbound <- inboundMessage{client: c, msg: msg}:
		case <-s.done:
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// deliver queues a message for one client, dropping the connection if
// its send buffer is full.
func (s *session) deliver(c *client, msg any) {
	select {
	case c.send <- msg:
	default:
		s.drop(c)
	}
}

// drop removes a client from the registry and closes its send channel;
// writePump then flushes what is queued and closes the socket. Dropping
// the last client arms the cleanup deadline, whatever the reason for
// the drop.
func (s *session) drop(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)

	if len(s.clients) == 0 {
		s.clock.arm(s.cfg.sessionTimeout, alarmCleanup)
	}
}

func (s *session) broadcast(msg any) {
	for c := range s.clients {
		s.deliver(c, msg)
	}
}

// toHost delivers to every host connection (normally one, but a
// reconnecting host display may briefly overlap with its predecessor).
func (s *session) toHost(msg any) {
	for c := range s.clients {
		if c.role == roleHost {
			s.deliver(c, msg)
		}
	}
}

// toPlayer delivers to every connection bound to the given player.
func (s *session) toPlayer(playerID string, msg any) {
	for c := range s.clients {
		if c.role == rolePlayer && c.playerID == playerID {
			s.deliver(c, msg)
		}
	}
}
