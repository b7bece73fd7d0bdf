// Package attachment validates and stores files shared in conversations.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxSize = 10 * 1024 * 1024 // 10 MB

var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var (
	ErrEmpty           = errors.New("attachment is empty")
	ErrTooLarge        = errors.New("attachment is too large")
	ErrUnsupportedType = errors.New("attachment type is not allowed")
	ErrNotFound        = errors.New("attachment not found")
)

// Stored describes a saved attachment. URL is what messages reference.
type Stored struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	MediaType string `json:"type"`
	Size      int64  `json:"size"`
}

type Store interface {
	Save(ctx context.Context, file Stored, data []byte) (*Stored, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Upload checks size and sniffed content type, then stores data under a new id.
func (s *Service) Upload(ctx context.Context, name string, data []byte) (*Stored, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), MaxSize)
	}

	mediaType, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	file := Stored{
		ID:        uuid.NewString(),
		Name:      cleanName(name),
		MediaType: mediaType,
		Size:      int64(len(data)),
	}
	stored, err := s.store.Save(ctx, file, data)
	if err != nil {
		return nil, fmt.Errorf("save attachment: %w", err)
	}

	s.logger.Info("attachment stored", "id", stored.ID, "type", stored.MediaType, "size", stored.Size)
	return stored, nil
}

// Sniff detects the media type from content, ignoring any client supplied type.
func Sniff(data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for _, allowed := range AllowedTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

func extension(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil {
		return m.Extension()
	}
	return ""
}
