package domain

import (
	"time"
)

// UploadStatus represents the state of an image upload.
type UploadStatus string

const (
	UploadPending    UploadStatus = "pending"    // presigned URL issued, object not confirmed
	UploadUploaded   UploadStatus = "uploaded"   // object confirmed in storage
	UploadProcessing UploadStatus = "processing" // worker picked it up
	UploadReady      UploadStatus = "ready"      // derived sizes available
	UploadFailed     UploadStatus = "failed"
)

// UploadPurpose indicates what the image is for.
type UploadPurpose string

const (
	PurposeListingPhoto UploadPurpose = "listing_photo"
	PurposeAvatar       UploadPurpose = "avatar"
)

// MaxUploadBytes caps the original object size accepted at presign time.
const MaxUploadBytes int64 = 10 << 20

// AllowedUploadMIMEs are the only content types a presigned PUT is issued for.
var AllowedUploadMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is one image's lifecycle record, from presign to derived sizes.
type Upload struct {
	ID      string
	OwnerID string
	// ListingID is set once the image is attached; empty until then.
	ListingID string
	Purpose   UploadPurpose
	Status    UploadStatus
	// RawObjectKey locates the original in object storage. Never exposed.
	RawObjectKey string
	MIME         string
	SizeBytes    int64
	// DerivedKeys maps size name ("thumb", "card", "full") to object key.
	DerivedKeys  map[string]string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether the upload reached a final state.
func (u *Upload) IsTerminal() bool {
	return u.Status == UploadReady || u.Status == UploadFailed
}

func (u *Upload) MarkUploaded(now time.Time) error {
	if u.Status != UploadPending {
		return ErrInvalidState("only pending upload can be confirmed")
	}
	u.Status = UploadUploaded
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *Upload) MarkProcessing(now time.Time) error {
	if u.Status != UploadUploaded {
		return ErrInvalidState("only uploaded upload can start processing")
	}
	u.Status = UploadProcessing
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *Upload) MarkReady(derived map[string]string, now time.Time) error {
	if u.Status != UploadProcessing && u.Status != UploadUploaded {
		return ErrInvalidState("upload is not being processed")
	}
	u.Status = UploadReady
	u.DerivedKeys = derived
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *Upload) MarkFailed(reason string, now time.Time) {
	u.Status = UploadFailed
	u.ErrorMessage = reason
	u.UpdatedAt = now.UTC()
}

// ImageSize defines one derived output.
type ImageSize struct {
	Name   string
	Width  int
	Height int  // 0 = preserve aspect ratio
	Crop   bool // center crop to exact dimensions
}

// DerivedSizes defines output sizes per purpose.
var DerivedSizes = map[UploadPurpose][]ImageSize{
	PurposeListingPhoto: {
		{Name: "thumb", Width: 256, Height: 256, Crop: true},
		{Name: "card", Width: 800, Height: 0, Crop: false},
		{Name: "full", Width: 1600, Height: 0, Crop: false},
	},
	PurposeAvatar: {
		{Name: "thumb", Width: 256, Height: 256, Crop: true},
		{Name: "full", Width: 512, Height: 512, Crop: true},
	},
}

func IsValidPurpose(p string) bool {
	return p == string(PurposeListingPhoto) || p == string(PurposeAvatar)
}
