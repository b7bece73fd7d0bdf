// Package membership maps conversations to the live connections joined to them.
package membership

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Conn is the part of a live connection the router needs.
type Conn interface {
	ID() string
	UserID() uint
	Join(room string)
	Leave(room string)
}

// MemberSource lists the members of a conversation. store.Store implements it.
type MemberSource interface {
	MemberIDs(ctx context.Context, conversationID uint) ([]uint, error)
}

// PersonalRoom is the room every connection of userID joins on attach.
func PersonalRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ConversationRoom is the room of connections that have the conversation open.
func ConversationRoom(conversationID uint) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

// Router tracks which attached connections are joined to which conversation rooms.
// It is safe for concurrent use.
type Router struct {
	members MemberSource

	mu     sync.RWMutex
	rooms  map[uint]map[string]Conn
	joined map[string]map[uint]struct{}
}

// NewRouter returns an empty router resolving recipients through members.
func NewRouter(members MemberSource) *Router {
	return &Router{
		members: members,
		rooms:   make(map[uint]map[string]Conn),
		joined:  make(map[string]map[uint]struct{}),
	}
}

// ResolveRecipients returns every member of the conversation.
func (r *Router) ResolveRecipients(ctx context.Context, conversationID uint) ([]uint, error) {
	ids, err := r.members.MemberIDs(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients of conversation %d: %w", conversationID, err)
	}
	return ids, nil
}

// Attach joins conn to its personal room.
func (r *Router) Attach(conn Conn) {
	conn.Join(PersonalRoom(conn.UserID()))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.joined[conn.ID()]; !ok {
		r.joined[conn.ID()] = make(map[uint]struct{})
	}
}

// Detach forgets conn in every conversation room. The transport drops its own
// rooms when the connection closes.
func (r *Router) Detach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for convID := range r.joined[conn.ID()] {
		r.removeLocked(convID, conn.ID())
	}
	delete(r.joined, conn.ID())
}

// Join puts conn in the conversation room. It reports false when conn was
// already there or is not attached.
func (r *Router) Join(conn Conn, conversationID uint) bool {
	r.mu.Lock()
	convs, attached := r.joined[conn.ID()]
	if !attached {
		r.mu.Unlock()
		return false
	}
	room, ok := r.rooms[conversationID]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[conversationID] = room
	}
	if _, already := room[conn.ID()]; already {
		r.mu.Unlock()
		return false
	}
	room[conn.ID()] = conn
	convs[conversationID] = struct{}{}
	r.mu.Unlock()

	conn.Join(ConversationRoom(conversationID))
	return true
}

// Leave removes conn from the conversation room. It reports false when conn was not there.
func (r *Router) Leave(conn Conn, conversationID uint) bool {
	r.mu.Lock()
	_, ok := r.rooms[conversationID][conn.ID()]
	if ok {
		r.removeLocked(conversationID, conn.ID())
		delete(r.joined[conn.ID()], conversationID)
	}
	r.mu.Unlock()

	if ok {
		conn.Leave(ConversationRoom(conversationID))
	}
	return ok
}

// IsAnyoneElsePresent reports whether a connection of a user other than senderID
// is joined to the conversation. A senderID of 0 matches any joined connection.
func (r *Router) IsAnyoneElsePresent(conversationID, senderID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.rooms[conversationID] {
		if conn.UserID() != senderID {
			return true
		}
	}
	return false
}

// Joined returns the conversations conn is joined to in ascending order.
func (r *Router) Joined(conn Conn) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.joined[conn.ID()]))
	for id := range r.joined[conn.ID()] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Router) removeLocked(conversationID uint, connID string) {
	room := r.rooms[conversationID]
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
}
