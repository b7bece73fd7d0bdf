package attachment

import (
	"context"
	"errors"

	"office-chat/model"

	"gorm.io/gorm"
)

// DBStore keeps attachment bytes in the database and serves them under baseURL.
type DBStore struct {
	db      *gorm.DB
	baseURL string
}

func NewDBStore(db *gorm.DB, baseURL string) *DBStore {
	return &DBStore{db: db, baseURL: baseURL}
}

func (s *DBStore) Save(ctx context.Context, file Stored, data []byte) (*Stored, error) {
	row := model.Attachment{
		ID:        file.ID,
		Name:      file.Name,
		MediaType: file.MediaType,
		Size:      file.Size,
		Data:      data,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	file.URL = s.baseURL + "/" + file.ID
	return &file, nil
}

func (s *DBStore) Get(ctx context.Context, id string) (*model.Attachment, error) {
	var row model.Attachment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
