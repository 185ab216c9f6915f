package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmart/marketplace-service/internal/domain"
)

// --- Fakes & helpers ---

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type memUploadRepo struct {
	byID map[string]*domain.Upload

	createErr error
	updateErr error
}

func newMemUploadRepo() *memUploadRepo {
	return &memUploadRepo{byID: map[string]*domain.Upload{}}
}

func (r *memUploadRepo) Create(ctx context.Context, u *domain.Upload) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUploadRepo) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUploadNotFound()
	}
	cp := *u
	return &cp, nil
}

func (r *memUploadRepo) Update(ctx context.Context, u *domain.Upload) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUploadNotFound()
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUploadRepo) CountByListing(ctx context.Context, listingID string) (int, error) {
	n := 0
	for _, u := range r.byID {
		if u.ListingID == listingID {
			n++
		}
	}
	return n, nil
}

func (r *memUploadRepo) ListByListing(ctx context.Context, listingID string) ([]*domain.Upload, error) {
	var out []*domain.Upload
	for _, u := range r.byID {
		if u.ListingID == listingID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUploadRepo) ListByListings(ctx context.Context, listingIDs []string) (map[string][]*domain.Upload, error) {
	out := map[string][]*domain.Upload{}
	for _, id := range listingIDs {
		ups, err := r.ListByListing(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(ups) > 0 {
			out[id] = ups
		}
	}
	return out, nil
}

func (r *memUploadRepo) ListStale(ctx context.Context, pendingOlderThan, failedOlderThan time.Duration, limit int) ([]*domain.Upload, error) {
	now := time.Now()
	var out []*domain.Upload
	for _, u := range r.byID {
		if len(out) >= limit {
			break
		}
		switch {
		case u.Status == domain.UploadPending && u.UpdatedAt.Before(now.Add(-pendingOlderThan)):
			cp := *u
			out = append(out, &cp)
		case u.Status == domain.UploadFailed && u.UpdatedAt.Before(now.Add(-failedOlderThan)):
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUploadRepo) ListStalled(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Upload, error) {
	now := time.Now()
	var out []*domain.Upload
	for _, u := range r.byID {
		if len(out) >= limit {
			break
		}
		if u.Status == domain.UploadUploaded && u.UpdatedAt.Before(now.Add(-olderThan)) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUploadRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUploadNotFound()
	}
	delete(r.byID, id)
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
	deleted []string

	presignErr error
	existsErr  error
	getErr     error
	putErr     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://s3.test/put/" + key, nil
}

func (f *fakeStorage) ObjectExists(ctx context.Context, key string) (bool, int64, error) {
	if f.existsErr != nil {
		return false, 0, f.existsErr
	}
	b, ok := f.objects[key]
	return ok, int64(len(b)), nil
}

func (f *fakeStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStorage) PutObject(ctx context.Context, key string, body io.Reader, contentType string, size int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string { return "https://cdn.test/" + key }

type capturingMediaPub struct {
	events []ProcessImageEvent
	fail   error
}

func (p *capturingMediaPub) PublishProcessImage(ctx context.Context, evt ProcessImageEvent) error {
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, evt)
	return nil
}

type stubMediaListings struct {
	byID map[string]*domain.Listing
}

func (s stubMediaListings) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrListingNotFound()
	}
	return l, nil
}

type mediaFixture struct {
	svc     *Service
	repo    *memUploadRepo
	st      *fakeStorage
	pub     *capturingMediaPub
	clock   *fakeClock
	listing *domain.Listing
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()

	now := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	l, err := domain.NewListing("owner", "Road bike for sale", "", "Brooklyn, NY", 12000, "", nil, now)
	require.NoError(t, err)

	repo := newMemUploadRepo()
	st := newFakeStorage()
	pub := &capturingMediaPub{}
	clock := &fakeClock{t: now}
	listings := stubMediaListings{byID: map[string]*domain.Listing{l.ID: l}}

	return &mediaFixture{
		svc:     New(repo, st, listings, pub, clock, Config{}),
		repo:    repo,
		st:      st,
		pub:     pub,
		clock:   clock,
		listing: l,
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

// seedUpload puts an upload row in the repo and optionally the raw bytes in
// storage.
func (f *mediaFixture) seedUpload(t *testing.T, status domain.UploadStatus, purpose domain.UploadPurpose, raw []byte) *domain.Upload {
	t.Helper()
	res, err := f.svc.CreateUpload(context.Background(), "owner", CreateUploadCmd{
		Purpose:   string(purpose),
		MIME:      "image/png",
		SizeBytes: 1024,
	})
	require.NoError(t, err)
	up := res.Upload
	up.Status = status
	require.NoError(t, f.repo.Update(context.Background(), up))
	if raw != nil {
		f.st.objects[up.RawObjectKey] = raw
	}
	return up
}

// --- Tests ---

func TestService_CreateUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("issues_presigned_put", func(t *testing.T) {
		f := newMediaFixture(t)

		res, err := f.svc.CreateUpload(ctx, "owner", CreateUploadCmd{
			Purpose:   "listing_photo",
			MIME:      "image/png",
			SizeBytes: 2048,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.UploadPending, res.Upload.Status)
		assert.True(t, strings.HasPrefix(res.UploadURL, "https://s3.test/put/raw/"))
		assert.True(t, strings.HasSuffix(res.Upload.RawObjectKey, ".png"))
		assert.Equal(t, f.clock.t.Add(15*time.Minute), res.ExpiresAt)

		stored, err := f.repo.GetByID(ctx, res.Upload.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadPending, stored.Status)
	})

	t.Run("rejects_unknown_purpose", func(t *testing.T) {
		f := newMediaFixture(t)

		_, err := f.svc.CreateUpload(ctx, "owner", CreateUploadCmd{Purpose: "banner", MIME: "image/png", SizeBytes: 1})
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("rejects_disallowed_mime", func(t *testing.T) {
		f := newMediaFixture(t)

		_, err := f.svc.CreateUpload(ctx, "owner", CreateUploadCmd{Purpose: "avatar", MIME: "image/gif", SizeBytes: 1})
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("rejects_oversize_declaration", func(t *testing.T) {
		f := newMediaFixture(t)

		_, err := f.svc.CreateUpload(ctx, "owner", CreateUploadCmd{Purpose: "avatar", MIME: "image/png", SizeBytes: domain.MaxUploadBytes + 1})
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("anonymous_rejected", func(t *testing.T) {
		f := newMediaFixture(t)

		_, err := f.svc.CreateUpload(ctx, "", CreateUploadCmd{Purpose: "avatar", MIME: "image/png", SizeBytes: 1})
		assert.True(t, domain.Is(err, "token_missing"))
	})
}

func TestService_CompleteUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms_object_and_queues_processing", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, tinyPNG(t))

		got, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		require.NoError(t, err)
		assert.Equal(t, domain.UploadUploaded, got.Status)
		assert.Equal(t, int64(len(f.st.objects[up.RawObjectKey])), got.SizeBytes)

		require.Len(t, f.pub.events, 1)
		assert.Equal(t, up.ID, f.pub.events[0].UploadID)
		assert.Equal(t, up.RawObjectKey, f.pub.events[0].ObjectKey)
	})

	t.Run("second_call_is_noop", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, tinyPNG(t))

		_, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		require.NoError(t, err)
		got, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		require.NoError(t, err)
		assert.Equal(t, domain.UploadUploaded, got.Status)
		assert.Len(t, f.pub.events, 1, "no second publish")
	})

	t.Run("missing_object_rejected", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, nil)

		_, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("wrong_owner_forbidden", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, tinyPNG(t))

		_, err := f.svc.CompleteUpload(ctx, up.ID, "intruder")
		assert.True(t, domain.Is(err, "forbidden"))
	})

	t.Run("oversized_object_marked_failed", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, make([]byte, domain.MaxUploadBytes+1))

		_, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		assert.True(t, domain.Is(err, "validation_failed"))

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadFailed, stored.Status)
		assert.Contains(t, f.st.deleted, up.RawObjectKey)
	})

	t.Run("storage_error_is_infrastructure", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, tinyPNG(t))
		f.st.existsErr = errors.New("s3 down")

		_, err := f.svc.CompleteUpload(ctx, up.ID, "owner")
		assert.True(t, domain.Is(err, "storage_unavailable"))
	})
}

func TestService_AttachToListing(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches_ready_photo", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		require.NoError(t, f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner"))

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Equal(t, f.listing.ID, stored.ListingID)
	})

	t.Run("same_listing_twice_is_noop", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		require.NoError(t, f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner"))
		require.NoError(t, f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner"))
	})

	t.Run("not_ready_rejected", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadUploaded, domain.PurposeListingPhoto, nil)

		err := f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner")
		assert.True(t, domain.Is(err, "invalid_state"))
	})

	t.Run("avatar_cannot_be_attached", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeAvatar, nil)

		err := f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner")
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("upload_owner_enforced", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		err := f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "intruder")
		assert.True(t, domain.Is(err, "forbidden"))
	})

	t.Run("listing_owner_enforced", func(t *testing.T) {
		f := newMediaFixture(t)
		other, err := domain.NewListing("someone_else", "Their couch", "", "Queens, NY", 100, "", nil, f.clock.t)
		require.NoError(t, err)
		f.svc.listings.(stubMediaListings).byID[other.ID] = other
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		got := f.svc.AttachToListing(ctx, up.ID, other.ID, "owner")
		assert.True(t, domain.Is(got, "not_listing_owner"))
	})

	t.Run("image_cap_enforced", func(t *testing.T) {
		f := newMediaFixture(t)
		for i := 0; i < domain.MaxImagesPerListing; i++ {
			attached := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)
			attached.ListingID = f.listing.ID
			require.NoError(t, f.repo.Update(ctx, attached))
		}
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		err := f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner")
		assert.True(t, domain.Is(err, "image_limit_reached"))
	})

	t.Run("already_attached_elsewhere_rejected", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)
		up.ListingID = "some-other-listing"
		require.NoError(t, f.repo.Update(ctx, up))

		err := f.svc.AttachToListing(ctx, up.ID, f.listing.ID, "owner")
		assert.True(t, domain.Is(err, "invalid_state"))
	})
}

func TestService_ProcessImage(t *testing.T) {
	ctx := context.Background()

	t.Run("derives_all_sizes_and_marks_ready", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadUploaded, domain.PurposeListingPhoto, tinyPNG(t))

		require.NoError(t, f.svc.ProcessImage(ctx, up.ID))

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadReady, stored.Status)
		require.Len(t, stored.DerivedKeys, 3)
		for _, name := range []string{"thumb", "card", "full"} {
			key, ok := stored.DerivedKeys[name]
			require.True(t, ok, "missing derived size %s", name)
			assert.Contains(t, key, "derived/listing_photo/")
			_, inStorage := f.st.objects[key]
			assert.True(t, inStorage, "derived object %s not written", key)
		}
	})

	t.Run("avatar_gets_two_sizes", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadUploaded, domain.PurposeAvatar, tinyPNG(t))

		require.NoError(t, f.svc.ProcessImage(ctx, up.ID))

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Len(t, stored.DerivedKeys, 2)
	})

	t.Run("garbage_input_is_terminal_not_transient", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadUploaded, domain.PurposeListingPhoto, []byte("definitely not an image at all"))

		require.NoError(t, f.svc.ProcessImage(ctx, up.ID), "bad input must ack, not requeue")

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadFailed, stored.Status)
		assert.Contains(t, f.st.deleted, up.RawObjectKey)
	})

	t.Run("ready_upload_is_noop", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)

		assert.NoError(t, f.svc.ProcessImage(ctx, up.ID))
	})

	t.Run("pending_upload_rejected", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadPending, domain.PurposeListingPhoto, nil)

		err := f.svc.ProcessImage(ctx, up.ID)
		assert.True(t, domain.Is(err, "invalid_state"))
	})

	t.Run("storage_error_is_transient", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadUploaded, domain.PurposeListingPhoto, tinyPNG(t))
		f.st.getErr = errors.New("s3 down")

		err := f.svc.ProcessImage(ctx, up.ID)
		require.Error(t, err)

		stored, gerr := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, gerr)
		assert.Equal(t, domain.UploadProcessing, stored.Status, "stays processing for redelivery")
	})

	t.Run("redelivery_mid_processing_resumes", func(t *testing.T) {
		f := newMediaFixture(t)
		up := f.seedUpload(t, domain.UploadProcessing, domain.PurposeListingPhoto, tinyPNG(t))

		require.NoError(t, f.svc.ProcessImage(ctx, up.ID))

		stored, err := f.repo.GetByID(ctx, up.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.UploadReady, stored.Status)
	})
}

func TestService_ThumbURLsByListing(t *testing.T) {
	ctx := context.Background()
	f := newMediaFixture(t)

	ready := f.seedUpload(t, domain.UploadReady, domain.PurposeListingPhoto, nil)
	ready.ListingID = f.listing.ID
	ready.DerivedKeys = map[string]string{"thumb": "derived/listing_photo/a_thumb.jpg"}
	require.NoError(t, f.repo.Update(ctx, ready))

	stillProcessing := f.seedUpload(t, domain.UploadProcessing, domain.PurposeListingPhoto, nil)
	stillProcessing.ListingID = f.listing.ID
	require.NoError(t, f.repo.Update(ctx, stillProcessing))

	urls, err := f.svc.ThumbURLsByListing(ctx, []string{f.listing.ID, "no-images"})
	require.NoError(t, err)
	require.Len(t, urls[f.listing.ID], 1, "only ready images surface")
	assert.Equal(t, "https://cdn.test/derived/listing_photo/a_thumb.jpg", urls[f.listing.ID][0])
	_, ok := urls["no-images"]
	assert.False(t, ok)
}

func TestService_DerivedURLs(t *testing.T) {
	f := newMediaFixture(t)

	t.Run("maps_keys_to_public_urls", func(t *testing.T) {
		up := &domain.Upload{
			Status:      domain.UploadReady,
			DerivedKeys: map[string]string{"thumb": "derived/avatar/x_thumb.jpg"},
		}
		urls := f.svc.DerivedURLs(up)
		assert.Equal(t, "https://cdn.test/derived/avatar/x_thumb.jpg", urls["thumb"])
	})

	t.Run("nil_until_ready", func(t *testing.T) {
		up := &domain.Upload{Status: domain.UploadPending}
		assert.Nil(t, f.svc.DerivedURLs(up))
	})
}

func TestJanitor_Sweep(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *mediaFixture, status domain.UploadStatus, age time.Duration, withRaw bool) *domain.Upload {
		t.Helper()
		var raw []byte
		if withRaw {
			raw = []byte("rawbytes0000")
		}
		up := f.seedUpload(t, status, domain.PurposeListingPhoto, raw)
		up.UpdatedAt = time.Now().Add(-age)
		require.NoError(t, f.repo.Update(ctx, up))
		return up
	}

	t.Run("reaps_expired_pending_and_old_failed", func(t *testing.T) {
		f := newMediaFixture(t)
		j := NewJanitor(f.repo, f.st, f.pub)

		expired := seed(t, f, domain.UploadPending, 48*time.Hour, true)
		fresh := seed(t, f, domain.UploadPending, 1*time.Hour, true)
		oldFailed := seed(t, f, domain.UploadFailed, 8*24*time.Hour, false)

		j.Sweep(ctx)

		_, err := f.repo.GetByID(ctx, expired.ID)
		assert.True(t, domain.Is(err, "upload_not_found"))
		_, err = f.repo.GetByID(ctx, oldFailed.ID)
		assert.True(t, domain.Is(err, "upload_not_found"))
		_, err = f.repo.GetByID(ctx, fresh.ID)
		assert.NoError(t, err)
		assert.Contains(t, f.st.deleted, expired.RawObjectKey)
	})

	t.Run("requeues_stalled_uploaded", func(t *testing.T) {
		f := newMediaFixture(t)
		j := NewJanitor(f.repo, f.st, f.pub)

		stalled := seed(t, f, domain.UploadUploaded, 30*time.Minute, true)
		j.Sweep(ctx)

		require.Len(t, f.pub.events, 1)
		assert.Equal(t, stalled.ID, f.pub.events[0].UploadID)
		_, err := f.repo.GetByID(ctx, stalled.ID)
		assert.NoError(t, err, "stalled rows are re-queued, not reaped")
	})
}
