package store

import (
	"context"

	"office-chat/model"
)

func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	return translate(s.db.WithContext(ctx).Create(msg).Error)
}

// ListMessages returns the history of a conversation ordered by (created_at, id).
func (s *Store) ListMessages(ctx context.Context, conversationID uint) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// LastMessages returns the newest message of each conversation that has one.
// Ids grow with insertion, so the newest message carries the highest id.
func (s *Store) LastMessages(ctx context.Context, conversationIDs []uint) (map[uint]model.Message, error) {
	last := make(map[uint]model.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return last, nil
	}

	newest := s.db.Model(&model.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id")

	var msgs []model.Message
	if err := s.db.WithContext(ctx).Where("id IN (?)", newest).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for _, m := range msgs {
		last[m.ConversationID] = m
	}
	return last, nil
}

// UnreadCounts counts unread messages not sent by userID, system messages included.
func (s *Store) UnreadCounts(ctx context.Context, conversationIDs []uint, userID uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ConversationID uint
		Unread         int64
	}
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ?", conversationIDs).
		Where("is_read = ?", false).
		Where("(sender_id IS NULL OR sender_id <> ?)", userID).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ConversationID] = r.Unread
	}
	return counts, nil
}

// MarkRead flags every unread message of the conversation not sent by userID
// as read and returns how many rows changed.
func (s *Store) MarkRead(ctx context.Context, conversationID, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND is_read = ?", conversationID, false).
		Where("(sender_id IS NULL OR sender_id <> ?)", userID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
