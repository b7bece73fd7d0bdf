package store

import (
	"context"
	"errors"
	"fmt"

	"office-chat/model"

	"gorm.io/gorm"
)

// DirectKey is the unique key of the direct conversation between a and b.
func DirectKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (s *Store) GetConversation(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := s.db.WithContext(ctx).Preload("Members").First(&conv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ConversationsForUser returns every conversation userID belongs to, members preloaded.
func (s *Store) ConversationsForUser(ctx context.Context, userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Members").
		Where("id IN (?)", s.db.Model(&model.Membership{}).Select("conversation_id").Where("user_id = ?", userID)).
		Find(&convs).Error
	return convs, err
}

func (s *Store) GetMembership(ctx context.Context, conversationID, userID uint) (*model.Membership, error) {
	var m model.Membership
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) IsMember(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Membership{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) MemberIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.Membership{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// GetOrCreateDirect returns the direct conversation between a and b, creating it
// with both memberships when missing. created reports whether this call created it.
// Concurrent callers for the same pair always get the same conversation.
func (s *Store) GetOrCreateDirect(ctx context.Context, a, b uint) (conv *model.Conversation, created bool, err error) {
	if a == b {
		return nil, false, fmt.Errorf("direct conversation needs two distinct users")
	}

	key := DirectKey(a, b)
	found := new(model.Conversation)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("direct_key = ?", key).First(found).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		*found = model.Conversation{Kind: model.KindDirect, DirectKey: &key}
		if err := tx.Omit("Members").Create(found).Error; err != nil {
			return err
		}
		members := []model.Membership{
			{ConversationID: found.ID, UserID: a},
			{ConversationID: found.ID, UserID: b},
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}
		found.Members = members
		created = true
		return nil
	})

	if err != nil {
		if !isDuplicate(err) {
			return nil, false, err
		}
		// Lost the race: the winner's row is committed by now.
		found = new(model.Conversation)
		if err := s.db.WithContext(ctx).Where("direct_key = ?", key).First(found).Error; err != nil {
			return nil, false, translate(err)
		}
		created = false
	}

	if found.Members == nil {
		if err := s.db.WithContext(ctx).Where("conversation_id = ?", found.ID).Find(&found.Members).Error; err != nil {
			return nil, false, err
		}
	}

	return found, created, nil
}

// CreateConversation inserts conv and its memberships in one transaction.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation, members []model.Membership) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(conv).Error; err != nil {
			return translate(err)
		}
		for i := range members {
			members[i].ConversationID = conv.ID
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return translate(err)
			}
		}
		conv.Members = members
		return nil
	})
}

// AddMember adds userID to the conversation. added is false when already a member.
func (s *Store) AddMember(ctx context.Context, conversationID, userID uint, isAdmin bool) (added bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Membership{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		m := model.Membership{ConversationID: conversationID, UserID: userID, IsAdmin: isAdmin}
		if err := tx.Create(&m).Error; err != nil {
			return translate(err)
		}
		added = true
		return nil
	})
	return added, err
}
