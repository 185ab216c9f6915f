package media

import (
	"time"
)

type Service struct {
	uploads  UploadRepo
	storage  ObjectStorage
	listings ListingReader
	pub      EventPublisher
	clock    Clock

	presignTTL time.Duration
	maxWidth   int
	maxHeight  int
}

type Config struct {
	PresignTTL time.Duration
	// MaxImageWidth/Height bound the decoded source before resizing.
	MaxImageWidth  int
	MaxImageHeight int
}

func New(uploads UploadRepo, storage ObjectStorage, listings ListingReader, pub EventPublisher, clock Clock, cfg Config) *Service {
	if clock == nil {
		clock = sysClock{}
	}
	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	maxW := cfg.MaxImageWidth
	if maxW <= 0 {
		maxW = 8000
	}
	maxH := cfg.MaxImageHeight
	if maxH <= 0 {
		maxH = 8000
	}
	return &Service{
		uploads:    uploads,
		storage:    storage,
		listings:   listings,
		pub:        pub,
		clock:      clock,
		presignTTL: presignTTL,
		maxWidth:   maxW,
		maxHeight:  maxH,
	}
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }
