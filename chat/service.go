package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"office-chat/model"
	"office-chat/store"
)

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	Unread        int64      `json:"unread"`
	Members       []uint     `json:"members"`
	Avatar        string     `json:"avatar,omitempty"`
	Email         string     `json:"email,omitempty"`
	OtherUserID   *uint      `json:"otherUserId,omitempty"`
}

type UserView struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

// Service answers conversation queries and membership changes.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// ListConversations returns userID's conversations, most recently active first.
// Conversations without messages come last, newest first.
func (s *Service) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	convs, err := s.store.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, internal("list conversations", err)
	}
	return s.summarize(ctx, convs, userID)
}

// ListMessages returns the history of a conversation in (created_at, id) order.
func (s *Service) ListMessages(ctx context.Context, conversationID, requesterID uint) ([]HistoryMessage, error) {
	if requesterID == 0 {
		return nil, ErrUnauthenticated
	}
	if conversationID == 0 {
		return nil, fmt.Errorf("%w: conversation id is required", ErrInvalidArgument)
	}
	if err := s.requireMember(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, internal("list messages", err)
	}

	senderIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.SenderID != nil {
			senderIDs = append(senderIDs, *row.SenderID)
		}
	}
	slices.Sort(senderIDs)
	users, err := s.store.UsersByIDs(ctx, slices.Compact(senderIDs))
	if err != nil {
		return nil, internal("load senders", err)
	}

	history := make([]HistoryMessage, 0, len(rows))
	for _, row := range rows {
		msg := HistoryMessage{Message: *toMessage(row, nil)}
		if row.SenderID != nil {
			msg.IsMe = *row.SenderID == requesterID
			if u, ok := users[*row.SenderID]; ok {
				msg.SenderName = u.Name
				msg.SenderAvatar = u.Avatar
			}
		}
		history = append(history, msg)
	}
	return history, nil
}

// GetOrCreateDirect returns the id of the direct conversation between userID and targetUserID.
func (s *Service) GetOrCreateDirect(ctx context.Context, userID, targetUserID uint) (uint, error) {
	conv, err := s.getOrCreateDirect(ctx, userID, targetUserID)
	if err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// CreateConversation creates a conversation with creatorID as admin.
// Kind direct needs exactly one other member and reuses an existing conversation.
func (s *Service) CreateConversation(ctx context.Context, creatorID uint, name, kind string, memberIDs []uint) (*ConversationSummary, error) {
	if creatorID == 0 {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if kind != model.KindDirect && kind != model.KindGroup {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, kind)
	}

	others := make([]uint, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != 0 && id != creatorID && !slices.Contains(others, id) {
			others = append(others, id)
		}
	}

	var conv *model.Conversation
	switch kind {
	case model.KindDirect:
		if len(others) != 1 {
			return nil, fmt.Errorf("%w: direct conversation needs exactly one other member", ErrInvalidArgument)
		}
		c, err := s.getOrCreateDirect(ctx, creatorID, others[0])
		if err != nil {
			return nil, err
		}
		conv = c

	case model.KindGroup:
		users, err := s.store.UsersByIDs(ctx, others)
		if err != nil {
			return nil, internal("load members", err)
		}
		for _, id := range others {
			if _, ok := users[id]; !ok {
				return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
			}
		}

		members := []model.Membership{{UserID: creatorID, IsAdmin: true}}
		for _, id := range others {
			members = append(members, model.Membership{UserID: id})
		}
		conv = &model.Conversation{Kind: model.KindGroup, Name: name}
		if err := s.store.CreateConversation(ctx, conv, members); err != nil {
			return nil, internal("create conversation", err)
		}
		s.logger.Info("group conversation created", "conversation", conv.ID, "creator", creatorID, "members", len(members))
	}

	summaries, err := s.summarize(ctx, []model.Conversation{*conv}, creatorID)
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// MarkRead flags every message in the conversation not sent by userID as read.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}
	if conversationID == 0 {
		return 0, fmt.Errorf("%w: conversation id is required", ErrInvalidArgument)
	}
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	updated, err := s.store.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return 0, internal("mark read", err)
	}
	return updated, nil
}

// AddMember adds userID to a group conversation. Only group admins may do so.
func (s *Service) AddMember(ctx context.Context, conversationID, requesterID, userID uint) (bool, error) {
	if requesterID == 0 {
		return false, ErrUnauthenticated
	}
	if conversationID == 0 || userID == 0 {
		return false, fmt.Errorf("%w: conversation id and user id are required", ErrInvalidArgument)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return false, internal(fmt.Sprintf("conversation %d", conversationID), err)
	}
	if conv.Kind != model.KindGroup {
		return false, fmt.Errorf("%w: members can only be added to group conversations", ErrInvalidArgument)
	}

	requester, err := s.store.GetMembership(ctx, conversationID, requesterID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, internal("membership", err)
	}
	if requester == nil || !requester.IsAdmin {
		return false, fmt.Errorf("%w: only group admins can add members", ErrForbidden)
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return false, internal(fmt.Sprintf("user %d", userID), err)
	}

	added, err := s.store.AddMember(ctx, conversationID, userID, false)
	if err != nil {
		return false, internal("add member", err)
	}
	if added {
		s.logger.Info("member added", "conversation", conversationID, "user", userID, "by", requesterID)
	}
	return added, nil
}

// ListUsers returns active colleagues of requesterID that can be messaged.
func (s *Service) ListUsers(ctx context.Context, requesterID uint) ([]UserView, error) {
	if requesterID == 0 {
		return nil, ErrUnauthenticated
	}

	users, err := s.store.ActiveUsers(ctx, requesterID)
	if err != nil {
		return nil, internal("list users", err)
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: u.Role})
	}
	return views, nil
}

func (s *Service) getOrCreateDirect(ctx context.Context, userID, targetUserID uint) (*model.Conversation, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if targetUserID == 0 {
		return nil, fmt.Errorf("%w: target user is required", ErrInvalidArgument)
	}
	if targetUserID == userID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidArgument)
	}
	if _, err := s.store.GetUser(ctx, targetUserID); err != nil {
		return nil, internal(fmt.Sprintf("user %d", targetUserID), err)
	}

	conv, created, err := s.store.GetOrCreateDirect(ctx, userID, targetUserID)
	if err != nil {
		return nil, internal("get or create direct conversation", err)
	}
	if created {
		s.logger.Info("direct conversation created", "conversation", conv.ID, "users", []uint{userID, targetUserID})
	}
	return conv, nil
}

func (s *Service) requireMember(ctx context.Context, conversationID, userID uint) error {
	ok, err := s.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return internal("membership", err)
	}
	if !ok {
		return fmt.Errorf("%w: not a member of conversation %d", ErrForbidden, conversationID)
	}
	return nil
}

func (s *Service) summarize(ctx context.Context, convs []model.Conversation, userID uint) ([]ConversationSummary, error) {
	ids := make([]uint, 0, len(convs))
	var counterparts []uint
	for _, c := range convs {
		ids = append(ids, c.ID)
		if other, ok := counterpart(c, userID); ok {
			counterparts = append(counterparts, other)
		}
	}

	last, err := s.store.LastMessages(ctx, ids)
	if err != nil {
		return nil, internal("last messages", err)
	}
	unread, err := s.store.UnreadCounts(ctx, ids, userID)
	if err != nil {
		return nil, internal("unread counts", err)
	}
	users, err := s.store.UsersByIDs(ctx, counterparts)
	if err != nil {
		return nil, internal("load counterparts", err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		sum := ConversationSummary{
			ID:      c.ID,
			Name:    c.Name,
			Kind:    c.Kind,
			Unread:  unread[c.ID],
			Members: make([]uint, 0, len(c.Members)),
		}
		for _, m := range c.Members {
			sum.Members = append(sum.Members, m.UserID)
		}
		slices.Sort(sum.Members)

		if other, ok := counterpart(c, userID); ok {
			sum.OtherUserID = &other
			if u, ok := users[other]; ok {
				sum.Name = u.Name
				sum.Avatar = u.Avatar
				sum.Email = u.Email
			}
		}

		if m, ok := last[c.ID]; ok {
			at := m.CreatedAt
			sum.LastMessageAt = &at
			sum.LastMessage = m.Body
			if sum.LastMessage == "" && m.AttachmentURL != "" {
				sum.LastMessage = "Attachment"
			}
		}
		summaries = append(summaries, sum)
	}

	slices.SortFunc(summaries, func(a, b ConversationSummary) int {
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if c := b.LastMessageAt.Compare(*a.LastMessageAt); c != 0 {
				return c
			}
		case a.LastMessageAt != nil:
			return -1
		case b.LastMessageAt != nil:
			return 1
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return summaries, nil
}

// counterpart is the other member of a direct conversation.
func counterpart(c model.Conversation, userID uint) (uint, bool) {
	if c.Kind != model.KindDirect {
		return 0, false
	}
	for _, m := range c.Members {
		if m.UserID != userID {
			return m.UserID, true
		}
	}
	return 0, false
}
