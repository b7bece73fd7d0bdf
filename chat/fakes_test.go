package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

type emitted struct {
	Room  string
	Event string
	Args  []any
}

type fakeConn struct {
	id     string
	userID uint
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	rooms  map[string]bool
	events []emitted
}

func newConn(id string, userID uint) *fakeConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeConn{id: id, userID: userID, ctx: ctx, cancel: cancel, rooms: make(map[string]bool)}
}

func (c *fakeConn) ID() string               { return c.id }
func (c *fakeConn) UserID() uint             { return c.userID }
func (c *fakeConn) Context() context.Context { return c.ctx }

func (c *fakeConn) Join(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = true
}

func (c *fakeConn) Leave(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *fakeConn) Emit(event string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Event: event, Args: args})
}

func (c *fakeConn) named(event string) []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emitted
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	events []emitted
}

func (p *fakePusher) Broadcast(event string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emitted{Event: event, Args: args})
}

func (p *fakePusher) EmitTo(room string, event string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emitted{Room: room, Event: event, Args: args})
}

func (p *fakePusher) named(event string) []emitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []emitted
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePusher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type published struct {
	Action string
	Data   any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, action string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{Action: action, Data: data})
	return nil
}

func (f *fakePublisher) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
