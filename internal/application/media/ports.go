package media

import (
	"context"
	"io"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

/*
UploadRepo
----------
Persistence port for upload lifecycle records.
*/
type UploadRepo interface {
	Create(ctx context.Context, u *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
	Update(ctx context.Context, u *domain.Upload) error
	CountByListing(ctx context.Context, listingID string) (int, error)
	ListByListing(ctx context.Context, listingID string) ([]*domain.Upload, error)
	// ListByListings fetches attached uploads for a whole result page in one
	// round trip, keyed by listing id.
	ListByListings(ctx context.Context, listingIDs []string) (map[string][]*domain.Upload, error)

	// Janitor queries. ListStale returns pending rows older than
	// pendingOlderThan plus failed rows older than failedOlderThan;
	// ListStalled returns uploaded rows that nobody processed for olderThan.
	ListStale(ctx context.Context, pendingOlderThan, failedOlderThan time.Duration, limit int) ([]*domain.Upload, error)
	ListStalled(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Upload, error)
	Delete(ctx context.Context, id string) error
}

/*
ObjectStorage
-------------
S3-compatible blob store. The API side presigns and verifies, the worker
side reads raws and writes derived objects.
*/
type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	ObjectExists(ctx context.Context, key string) (exists bool, size int64, err error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, key string, body io.Reader, contentType string, size int64) error
	DeleteObject(ctx context.Context, key string) error
	PublicURL(key string) string
}

/*
EventPublisher
--------------
Queues confirmed uploads for the resize worker.
*/
type ProcessImageEvent struct {
	UploadID  string `json:"upload_id"`
	ObjectKey string `json:"object_key"`
	Purpose   string `json:"purpose"`
}

type EventPublisher interface {
	PublishProcessImage(ctx context.Context, evt ProcessImageEvent) error
}

/*
ListingReader
-------------
Narrow read port into the listings context, for attach permission checks.
*/
type ListingReader interface {
	Get(ctx context.Context, id string) (*domain.Listing, error)
}

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}
