// Package store persists conversations, memberships and messages.
package store

import (
	"context"
	"errors"
	"strings"

	"office-chat/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UsersByIDs returns the profiles that exist among ids, keyed by id.
func (s *Store) UsersByIDs(ctx context.Context, ids []uint) (map[uint]model.User, error) {
	users := make(map[uint]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var rows []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

// ActiveUsers lists active users with a name, excluding excludeID, ordered by name.
func (s *Store) ActiveUsers(ctx context.Context, excludeID uint) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("status = ? AND name <> '' AND id <> ?", model.StatusActive, excludeID).
		Order("name ASC, id ASC").
		Find(&users).Error
	return users, err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
