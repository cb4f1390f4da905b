package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	attachmentDto "greenhouse.org/growersplatform/internal/modules/attachment/dto"
	"greenhouse.org/growersplatform/internal/modules/attachment/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/storage"
)

const uploadFolder = "attachments"

type AttachmentService interface {
	Upload(ctx context.Context, userID uuid.UUID, r io.Reader, size int64) (*attachmentDto.AttachmentResponse, error)
	// CleanupOrphans removes files no post claimed within olderThan and returns how many were deleted.
	CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

type attachmentService struct {
	repo     repository.AttachmentRepository
	storage  storage.FileStorage
	maxBytes int64
	log      *logger.Logger
	now      func() time.Time
}

func NewAttachmentService(repo repository.AttachmentRepository, fileStorage storage.FileStorage, maxBytes int64, log *logger.Logger) AttachmentService {
	return &attachmentService{
		repo:     repo,
		storage:  fileStorage,
		maxBytes: maxBytes,
		log:      log,
		now:      time.Now,
	}
}

func (s *attachmentService) Upload(ctx context.Context, userID uuid.UUID, r io.Reader, size int64) (*attachmentDto.AttachmentResponse, error) {
	if size > s.maxBytes {
		return nil, s.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", apperror.ErrInvalidInput)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, s.tooLarge()
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty: %w", apperror.ErrInvalidInput)
	}

	mime, ext, err := storage.Sniff(data, storage.MediaTypes)
	if err != nil {
		return nil, err
	}

	fileURL, err := s.storage.Upload(ctx, bytes.NewReader(data), uploadFolder, uuid.NewString()+ext)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	att := &entity.Attachment{
		UserID:    userID,
		FileURL:   fileURL,
		FileType:  mime,
		SizeBytes: int64(len(data)),
	}
	if err := s.repo.Create(ctx, att); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), fileURL); delErr != nil {
			s.log.Warn("failed to remove stored file after db error", "url", fileURL, "error", delErr)
		}
		return nil, err
	}

	return &attachmentDto.AttachmentResponse{
		ID:        att.ID,
		FileURL:   att.FileURL,
		FileType:  att.FileType,
		SizeBytes: att.SizeBytes,
		CreatedAt: att.CreatedAt,
	}, nil
}

func (s *attachmentService) tooLarge() error {
	return apperror.New(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20), apperror.ErrInvalidInput)
}

func (s *attachmentService) CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	orphans, err := s.repo.FindOrphans(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, att := range orphans {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.storage.Delete(ctx, att.FileURL); err != nil {
			s.log.Warn("failed to delete orphaned file", "attachment_id", att.ID, "url", att.FileURL, "error", err)
			continue
		}
		if err := s.repo.Delete(ctx, att.ID); err != nil {
			s.log.Warn("failed to delete orphaned attachment row", "attachment_id", att.ID, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
