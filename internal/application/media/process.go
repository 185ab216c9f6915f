package media

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/imaging"
)

// ProcessImage runs the resize pipeline for one confirmed upload. It is the
// worker-side entry point and is safe under redelivery: a ready upload is a
// no-op, a processing one is resumed.
//
// A returned error means a transient failure (storage, database) and the
// message should be redelivered. Broken input is terminal: the upload is
// marked failed, the raw object dropped, and nil returned so the message is
// acked.
func (s *Service) ProcessImage(ctx context.Context, uploadID string) error {
	up, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	switch up.Status {
	case domain.UploadReady:
		return nil
	case domain.UploadProcessing:
		// redelivered mid-flight, run again
	case domain.UploadUploaded:
		if err := up.MarkProcessing(now); err != nil {
			return err
		}
		if err := s.uploads.Update(ctx, up); err != nil {
			return err
		}
	default:
		return domain.ErrInvalidState(fmt.Sprintf("upload is %s, not processable", up.Status))
	}

	data, err := s.readRaw(ctx, up.RawObjectKey)
	if err != nil {
		return err
	}

	if int64(len(data)) > domain.MaxUploadBytes {
		return s.failUpload(ctx, up, "file too large")
	}

	sizes, ok := domain.DerivedSizes[up.Purpose]
	if !ok {
		return s.failUpload(ctx, up, "unknown purpose")
	}

	results, err := imaging.Process(data, sizes, s.maxWidth, s.maxHeight)
	if err != nil {
		return s.failUpload(ctx, up, err.Error())
	}

	derived := make(map[string]string, len(results))
	for name, b := range results {
		key := fmt.Sprintf("derived/%s/%s_%s.jpg", up.Purpose, up.ID, name)
		if err := s.storage.PutObject(ctx, key, bytes.NewReader(b), "image/jpeg", int64(len(b))); err != nil {
			return domain.ErrStorageUnavailable(err)
		}
		derived[name] = key
	}

	if err := up.MarkReady(derived, s.clock.Now()); err != nil {
		return err
	}
	return s.uploads.Update(ctx, up)
}

func (s *Service) readRaw(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.storage.GetObject(ctx, key)
	if err != nil {
		return nil, domain.ErrStorageUnavailable(err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// failUpload records a terminal failure and removes the raw object. The nil
// return tells the consumer to ack.
func (s *Service) failUpload(ctx context.Context, up *domain.Upload, reason string) error {
	_ = s.storage.DeleteObject(ctx, up.RawObjectKey)
	up.MarkFailed(reason, s.clock.Now())
	return s.uploads.Update(ctx, up)
}
