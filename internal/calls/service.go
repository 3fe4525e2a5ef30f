package calls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"call-analytics-backend/internal/shared/storage/object"
	"call-analytics-backend/internal/shared/telemetry"
)

const storageNamespace = "calls"

var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".ogg":  {},
	".m4a":  {},
	".flac": {},
}

// TranscriptRemover drops the stored transcript of a call.
type TranscriptRemover interface {
	Delete(ctx context.Context, callID string) error
}

// Service contains business logic for the call registry.
type Service struct {
	Repo        Repo
	Store       object.ObjectStore
	Transcripts TranscriptRemover
}

// Upload saves the audio to object storage and records a new call.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Call, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Call{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !IsSupportedAudio(fileName) {
		return Call{}, fmt.Errorf("%w: %s", ErrUnsupportedAudio, filepath.Ext(fileName))
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, storageNamespace, fileName, r)
	if err != nil {
		return Call{}, err
	}
	if size == 0 {
		_ = s.Store.Delete(ctx, storageKey)
		return Call{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	call := Call{
		ID:         uuid.NewString(),
		Filename:   fileName,
		StorageKey: storageKey,
		MimeType:   mimeType,
		SizeBytes:  size,
		Status:     StatusNew,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, call); err != nil {
		_ = s.Store.Delete(ctx, storageKey)
		return Call{}, err
	}
	telemetry.Info("call.uploaded", map[string]any{
		"call_id":    call.ID,
		"filename":   call.Filename,
		"size_bytes": call.SizeBytes,
		"mime_type":  call.MimeType,
	})
	return call, nil
}

// Get returns a call by ID.
func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	if strings.TrimSpace(id) == "" {
		return Call{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns calls newest-first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Call, error) {
	return s.Repo.List(ctx, filter)
}

// Delete removes the call row, its transcript and its stored audio.
func (s *Service) Delete(ctx context.Context, id string) error {
	call, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.Transcripts != nil {
		if err := s.Transcripts.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete transcript: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, call.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Error("call.audio_delete_failed", map[string]any{
			"call_id":     id,
			"storage_key": call.StorageKey,
			"error":       err.Error(),
		})
	}
	telemetry.Info("call.deleted", map[string]any{"call_id": id})
	return nil
}

// IsSupportedAudio reports whether the file extension is an accepted audio format.
func IsSupportedAudio(fileName string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(fileName))]
	return ok
}
