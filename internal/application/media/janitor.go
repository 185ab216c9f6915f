package media

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Janitor sweeps the upload table periodically: rows stuck in pending whose
// presigned URL long expired and old failed rows are removed together with
// their raw objects; uploaded rows whose queue message got lost are
// re-published.
type Janitor struct {
	uploads UploadRepo
	storage ObjectStorage
	pub     EventPublisher

	interval     time.Duration
	pendingTTL   time.Duration
	failedTTL    time.Duration
	stalledAfter time.Duration
}

func NewJanitor(uploads UploadRepo, storage ObjectStorage, pub EventPublisher) *Janitor {
	return &Janitor{
		uploads:      uploads,
		storage:      storage,
		pub:          pub,
		interval:     1 * time.Hour,
		pendingTTL:   24 * time.Hour,
		failedTTL:    7 * 24 * time.Hour,
		stalledAfter: 10 * time.Minute,
	}
}

// Run blocks until ctx is done, sweeping once per interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	zlog.Info().Dur("interval", j.interval).Msg("media janitor started")
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("media janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Exported so the worker can trigger it on demand.
func (j *Janitor) Sweep(ctx context.Context) {
	j.reapStale(ctx)
	j.requeueStalled(ctx)
}

func (j *Janitor) reapStale(ctx context.Context) {
	stale, err := j.uploads.ListStale(ctx, j.pendingTTL, j.failedTTL, 100)
	if err != nil {
		zlog.Error().Err(err).Msg("janitor: list stale uploads failed")
		return
	}
	for _, up := range stale {
		if up.RawObjectKey != "" {
			if err := j.storage.DeleteObject(ctx, up.RawObjectKey); err != nil {
				zlog.Warn().Err(err).Str("upload_id", up.ID).Str("key", up.RawObjectKey).Msg("janitor: delete raw object failed")
			}
		}
		if err := j.uploads.Delete(ctx, up.ID); err != nil {
			zlog.Error().Err(err).Str("upload_id", up.ID).Msg("janitor: delete upload row failed")
			continue
		}
		zlog.Info().Str("upload_id", up.ID).Str("status", string(up.Status)).Msg("janitor: reaped stale upload")
	}
}

func (j *Janitor) requeueStalled(ctx context.Context) {
	if j.pub == nil {
		return
	}
	stalled, err := j.uploads.ListStalled(ctx, j.stalledAfter, 100)
	if err != nil {
		zlog.Error().Err(err).Msg("janitor: list stalled uploads failed")
		return
	}
	for _, up := range stalled {
		evt := ProcessImageEvent{UploadID: up.ID, ObjectKey: up.RawObjectKey, Purpose: string(up.Purpose)}
		if err := j.pub.PublishProcessImage(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("upload_id", up.ID).Msg("janitor: re-publish failed")
			continue
		}
		zlog.Info().Str("upload_id", up.ID).Msg("janitor: re-published stalled upload")
	}
}
