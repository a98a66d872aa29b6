package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/foxxcyber/household/internal/models"
)

// ObjectUploader is the part of StorageService the archiver needs
type ObjectUploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
}

// SessionArchiver writes a JSON record of each finished shopping session to
// object storage under sessions/<user id>/<uuid>.json.
type SessionArchiver struct {
	storage ObjectUploader
	newID   func() uuid.UUID
}

// NewSessionArchiver creates an archiver backed by storage
func NewSessionArchiver(storage ObjectUploader) *SessionArchiver {
	return &SessionArchiver{storage: storage, newID: uuid.New}
}

// Archive uploads record. It implements session.Archiver.
func (a *SessionArchiver) Archive(ctx context.Context, record *models.SessionArchive) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session archive: %w", err)
	}

	key := fmt.Sprintf("sessions/%d/%s.json", record.UserID, a.newID())
	if _, err := a.storage.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return err
	}
	return nil
}
