package media

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/domain"
)

type CreateUploadCmd struct {
	Purpose   string
	MIME      string
	SizeBytes int64
}

type CreateUploadResult struct {
	Upload    *domain.Upload
	UploadURL string
	ExpiresAt time.Time
}

// CreateUpload records a pending upload and hands back a presigned PUT URL.
// Nothing touches our servers; the client uploads straight to object storage
// and then confirms with CompleteUpload.
func (s *Service) CreateUpload(ctx context.Context, ownerID string, cmd CreateUploadCmd) (CreateUploadResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return CreateUploadResult{}, domain.ErrTokenMissing()
	}
	if !domain.IsValidPurpose(cmd.Purpose) {
		return CreateUploadResult{}, domain.ErrValidation("purpose must be listing_photo or avatar")
	}
	if !domain.AllowedUploadMIMEs[cmd.MIME] {
		return CreateUploadResult{}, domain.ErrValidation("content type must be image/jpeg, image/png or image/webp")
	}
	if cmd.SizeBytes <= 0 || cmd.SizeBytes > domain.MaxUploadBytes {
		return CreateUploadResult{}, domain.ErrValidation("size must be positive and at most 10 MiB")
	}

	now := s.clock.Now().UTC()
	id := uuid.NewString()
	up := &domain.Upload{
		ID:           id,
		OwnerID:      ownerID,
		Purpose:      domain.UploadPurpose(cmd.Purpose),
		Status:       domain.UploadPending,
		RawObjectKey: "raw/" + id + extForMIME(cmd.MIME),
		MIME:         cmd.MIME,
		SizeBytes:    cmd.SizeBytes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.uploads.Create(ctx, up); err != nil {
		return CreateUploadResult{}, err
	}

	url, err := s.storage.PresignPut(ctx, up.RawObjectKey, cmd.MIME, s.presignTTL)
	if err != nil {
		return CreateUploadResult{}, domain.ErrStorageUnavailable(err)
	}

	return CreateUploadResult{
		Upload:    up,
		UploadURL: url,
		ExpiresAt: now.Add(s.presignTTL),
	}, nil
}

// CompleteUpload verifies the object landed in storage, marks the upload and
// queues it for the resize worker. Calling it again after confirmation is a
// no-op returning the current state.
func (s *Service) CompleteUpload(ctx context.Context, uploadID, ownerID string) (*domain.Upload, error) {
	up, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if up.OwnerID != ownerID {
		return nil, domain.ErrForbidden()
	}
	if up.Status != domain.UploadPending {
		return up, nil
	}

	exists, size, err := s.storage.ObjectExists(ctx, up.RawObjectKey)
	if err != nil {
		return nil, domain.ErrStorageUnavailable(err)
	}
	if !exists {
		return nil, domain.ErrValidation("object not uploaded yet")
	}

	now := s.clock.Now()
	if size > domain.MaxUploadBytes {
		_ = s.storage.DeleteObject(ctx, up.RawObjectKey)
		up.MarkFailed("file too large", now)
		if err := s.uploads.Update(ctx, up); err != nil {
			return nil, err
		}
		return nil, domain.ErrValidation("file too large")
	}

	up.SizeBytes = size
	if err := up.MarkUploaded(now); err != nil {
		return nil, err
	}
	if err := s.uploads.Update(ctx, up); err != nil {
		return nil, err
	}

	if s.pub != nil {
		evt := ProcessImageEvent{UploadID: up.ID, ObjectKey: up.RawObjectKey, Purpose: string(up.Purpose)}
		if err := s.pub.PublishProcessImage(ctx, evt); err != nil {
			// row stays in uploaded; the janitor re-publishes stalled ones
			zlog.Warn().Err(err).Str("upload_id", up.ID).Msg("media.process.image publish failed")
		}
	}

	return up, nil
}

// Get returns the upload record. Owner or staff only is enforced at the
// handler via the upload's owner field.
func (s *Service) Get(ctx context.Context, uploadID string) (*domain.Upload, error) {
	return s.uploads.GetByID(ctx, uploadID)
}

// DerivedURLs maps size names to public URLs for a ready upload.
func (s *Service) DerivedURLs(up *domain.Upload) map[string]string {
	if up.Status != domain.UploadReady || len(up.DerivedKeys) == 0 {
		return nil
	}
	out := make(map[string]string, len(up.DerivedKeys))
	for name, key := range up.DerivedKeys {
		out[name] = s.storage.PublicURL(key)
	}
	return out
}

func extForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
