package socketio

import (
	"context"

	"office-chat/utils"

	"github.com/zishang520/socket.io/v2/socket"
)

// Conn wraps an authenticated socket. It implements chat.Conn.
type Conn struct {
	socket   *socket.Socket
	identity *utils.Identity
	ctx      context.Context
	cancel   context.CancelFunc
}

func newConn(client *socket.Socket) (*Conn, bool) {
	identity, ok := client.Data().(*utils.Identity)
	if !ok || identity == nil {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{socket: client, identity: identity, ctx: ctx, cancel: cancel}, true
}

func (c *Conn) ID() string {
	return string(c.socket.Id())
}

func (c *Conn) UserID() uint {
	return c.identity.ID
}

func (c *Conn) Context() context.Context {
	return c.ctx
}

func (c *Conn) Join(room string) {
	c.socket.Join(socket.Room(room))
}

func (c *Conn) Leave(room string) {
	c.socket.Leave(socket.Room(room))
}

func (c *Conn) Emit(event string, args ...any) {
	_ = c.socket.Emit(event, args...)
}

func (c *Conn) On(event string, fn func(args ...any)) {
	c.socket.On(event, fn)
}

// OnDisconnect cancels the connection context before calling fn.
func (c *Conn) OnDisconnect(fn func()) {
	c.socket.On("disconnect", func(...any) {
		c.cancel()
		fn()
	})
}
