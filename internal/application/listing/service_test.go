package listing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

// --- Fakes & helpers ---

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type memRepo struct {
	byID map[string]*domain.Listing
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]*domain.Listing{}} }

func (m *memRepo) Create(ctx context.Context, l *domain.Listing) error {
	m.byID[l.ID] = l
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrListingNotFound()
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) Update(ctx context.Context, l *domain.Listing) error {
	m.byID[l.ID] = l
	return nil
}

func (m *memRepo) SearchText(ctx context.Context, q string, limit int) ([]*domain.Listing, error) {
	ql := strings.ToLower(strings.TrimSpace(q))
	out := []*domain.Listing{}
	for _, l := range m.byID {
		if l.Status != domain.ListingActive {
			continue
		}
		if ql != "" && !textMatches(l, ql) {
			continue
		}
		out = append(out, l)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func textMatches(l *domain.Listing, ql string) bool {
	if strings.Contains(strings.ToLower(l.Title), ql) ||
		strings.Contains(strings.ToLower(l.Description), ql) ||
		strings.Contains(strings.ToLower(l.Location), ql) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), ql) {
			return true
		}
	}
	return false
}

func sortNewestFirst(ls []*domain.Listing) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
		return ls[i].ID > ls[j].ID
	})
}

func (m *memRepo) DistinctActiveLocations(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, l := range m.byID {
		if l.Status != domain.ListingActive {
			continue
		}
		if _, dup := seen[l.Location]; dup {
			continue
		}
		seen[l.Location] = struct{}{}
		out = append(out, l.Location)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) ListByOwnerKeyset(ctx context.Context, ownerID string, pageSize int, hasCursor bool, afterCreated time.Time, afterID string) ([]*domain.Listing, error) {
	out := []*domain.Listing{}
	for _, l := range m.byID {
		if l.OwnerID != ownerID || l.Status == domain.ListingDeleted {
			continue
		}
		out = append(out, l)
	}
	sortNewestFirst(out)
	if hasCursor {
		trimmed := out[:0]
		for _, l := range out {
			if l.CreatedAt.Before(afterCreated) || (l.CreatedAt.Equal(afterCreated) && l.ID < afterID) {
				trimmed = append(trimmed, l)
			}
		}
		out = trimmed
	}
	if len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}

type capturingPublisher struct {
	created []ListingCreatedEvent
	deleted []ListingDeletedEvent
	fail    bool
}

func (p *capturingPublisher) PublishListingCreated(ctx context.Context, evt ListingCreatedEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.created = append(p.created, evt)
	return nil
}

func (p *capturingPublisher) PublishListingDeleted(ctx context.Context, evt ListingDeletedEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.deleted = append(p.deleted, evt)
	return nil
}

type stubSuggester struct {
	sug Suggestion
	err error
}

func (s stubSuggester) Suggest(ctx context.Context, description string) (Suggestion, error) {
	return s.sug, s.err
}

type stubGeocoder struct {
	area string
	err  error
}

func (g stubGeocoder) ReverseCity(ctx context.Context, lat, lon float64) (string, error) {
	return g.area, g.err
}

func testTime(t *testing.T, s string) time.Time {
	t.Helper()
	tt, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tt.UTC()
}

func newTestService(repo *memRepo, pub EventPublisher, now time.Time) *Service {
	return New(repo, pub, nil, nil, fakeClock{t: now}, citymatch.NewMatcher())
}

func seedListing(t *testing.T, repo *memRepo, owner, title, location string, created time.Time) *domain.Listing {
	t.Helper()
	l, err := domain.NewListing(owner, title, "", location, 1000, "", nil, created)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), l))
	return l
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	now := testTime(t, "2025-11-02T09:00:00Z")
	ctx := context.Background()

	t.Run("creates_and_publishes", func(t *testing.T) {
		repo := newMemRepo()
		pub := &capturingPublisher{}
		svc := newTestService(repo, pub, now)

		l, err := svc.Create(ctx, "u1", CreateCmd{Title: "Road bike", Location: "Brooklyn, NY"})
		require.NoError(t, err)
		assert.Equal(t, domain.ListingActive, l.Status)
		require.Len(t, pub.created, 1)
		assert.Equal(t, l.ID, pub.created[0].ListingID)
		assert.Equal(t, "Brooklyn", pub.created[0].City)
	})

	t.Run("publish_failure_does_not_fail_create", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, &capturingPublisher{fail: true}, now)

		_, err := svc.Create(ctx, "u1", CreateCmd{Title: "Road bike"})
		assert.NoError(t, err)
	})

	t.Run("suggester_fills_omitted_fields", func(t *testing.T) {
		repo := newMemRepo()
		svc := New(repo, nil, stubSuggester{sug: Suggestion{Title: "Vintage lamp", Tags: []string{"decor"}, PriceCents: 2500}}, nil, fakeClock{t: now}, citymatch.NewMatcher())

		l, err := svc.Create(ctx, "u1", CreateCmd{Description: "old brass lamp, works fine"})
		require.NoError(t, err)
		assert.Equal(t, "Vintage lamp", l.Title)
		assert.Equal(t, []string{"decor"}, l.Tags)
		assert.Equal(t, int64(2500), l.PriceCents)
	})

	t.Run("suggester_never_overrides_given_fields", func(t *testing.T) {
		repo := newMemRepo()
		price := int64(100)
		svc := New(repo, nil, stubSuggester{sug: Suggestion{Title: "Nope", Tags: []string{"x"}, PriceCents: 9999}}, nil, fakeClock{t: now}, citymatch.NewMatcher())

		l, err := svc.Create(ctx, "u1", CreateCmd{Title: "My title", Description: "desc", PriceCents: &price, Tags: []string{"mine"}})
		require.NoError(t, err)
		assert.Equal(t, "My title", l.Title)
		assert.Equal(t, []string{"mine"}, l.Tags)
		assert.Equal(t, int64(100), l.PriceCents)
	})

	t.Run("suggester_failure_degrades_to_given_input", func(t *testing.T) {
		repo := newMemRepo()
		svc := New(repo, nil, stubSuggester{err: errors.New("model offline")}, nil, fakeClock{t: now}, citymatch.NewMatcher())

		l, err := svc.Create(ctx, "u1", CreateCmd{Title: "Road bike", Description: "desc"})
		require.NoError(t, err)
		assert.Equal(t, "Road bike", l.Title)
	})

	t.Run("invalid_listing_rejected", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)

		_, err := svc.Create(ctx, "u1", CreateCmd{Title: "ab"})
		assert.Error(t, err)
		assert.Empty(t, repo.byID)
	})
}

func TestService_UpdateAndDelete_Permissions(t *testing.T) {
	now := testTime(t, "2025-11-02T09:00:00Z")
	ctx := context.Background()

	t.Run("owner_updates_own_listing", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "Brooklyn, NY", now)

		title := "Road bike (tuned)"
		got, err := svc.Update(ctx, l.ID, "u1", "user", UpdateCmd{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Road bike (tuned)", got.Title)
	})

	t.Run("stranger_cannot_update", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		title := "hijack"
		_, err := svc.Update(ctx, l.ID, "u2", "user", UpdateCmd{Title: &title})
		assert.True(t, domain.Is(err, "not_listing_owner"))
	})

	t.Run("moderator_can_update_others", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Rod bike", "", now)

		title := "Road bike"
		_, err := svc.Update(ctx, l.ID, "mod-1", "moderator", UpdateCmd{Title: &title})
		assert.NoError(t, err)
	})

	t.Run("owner_deletes_own_listing", func(t *testing.T) {
		repo := newMemRepo()
		pub := &capturingPublisher{}
		svc := newTestService(repo, pub, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		require.NoError(t, svc.Delete(ctx, l.ID, "u1", "user", ""))
		assert.Equal(t, domain.ListingDeleted, repo.byID[l.ID].Status)
		assert.Len(t, pub.deleted, 1)
	})

	t.Run("moderator_cannot_delete", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		err := svc.Delete(ctx, l.ID, "mod-1", "moderator", "spam")
		assert.True(t, domain.Is(err, "forbidden"))
	})

	t.Run("admin_deletes_any_listing", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		require.NoError(t, svc.Delete(ctx, l.ID, "admin-1", "admin", "prohibited item"))
		assert.Equal(t, domain.ListingDeleted, repo.byID[l.ID].Status)
	})

	t.Run("deleted_listing_is_gone_from_get", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		require.NoError(t, svc.Delete(ctx, l.ID, "u1", "user", ""))
		_, err := svc.Get(ctx, l.ID)
		assert.True(t, domain.Is(err, "listing_not_found"))
	})

	t.Run("only_owner_marks_sold", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestService(repo, nil, now)
		l := seedListing(t, repo, "u1", "Road bike", "", now)

		_, err := svc.MarkSold(ctx, l.ID, "admin-1")
		assert.Error(t, err)

		got, err := svc.MarkSold(ctx, l.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.ListingSold, got.Status)
	})
}

func TestService_ListByOwner(t *testing.T) {
	now := testTime(t, "2025-11-02T09:00:00Z")
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, nil, now)

	for i := 0; i < 5; i++ {
		seedListing(t, repo, "u1", "Item number x", "", now.Add(time.Duration(i)*time.Minute))
	}
	seedListing(t, repo, "u2", "Other owner", "", now)

	t.Run("pages_through_with_cursor", func(t *testing.T) {
		page1, err := svc.ListByOwner(ctx, "u1", 2, "")
		require.NoError(t, err)
		require.Len(t, page1.Items, 2)
		require.NotEmpty(t, page1.NextCursor)

		page2, err := svc.ListByOwner(ctx, "u1", 2, page1.NextCursor)
		require.NoError(t, err)
		require.Len(t, page2.Items, 2)

		// no overlap, newest first
		assert.True(t, page1.Items[1].CreatedAt.After(page2.Items[0].CreatedAt) ||
			page1.Items[1].CreatedAt.Equal(page2.Items[0].CreatedAt))
		for _, a := range page1.Items {
			for _, b := range page2.Items {
				assert.NotEqual(t, a.ID, b.ID)
			}
		}
	})

	t.Run("bad_cursor_rejected", func(t *testing.T) {
		_, err := svc.ListByOwner(ctx, "u1", 2, "garbage")
		assert.True(t, domain.Is(err, "validation_failed"))
	})

	t.Run("missing_owner_rejected", func(t *testing.T) {
		_, err := svc.ListByOwner(ctx, "  ", 2, "")
		assert.Error(t, err)
	})
}

func TestService_ResolveArea(t *testing.T) {
	now := testTime(t, "2025-11-02T09:00:00Z")
	ctx := context.Background()
	repo := newMemRepo()

	t.Run("no_geocoder_yields_empty", func(t *testing.T) {
		svc := newTestService(repo, nil, now)
		assert.Equal(t, "", svc.ResolveArea(ctx, 40.65, -73.95))
	})

	t.Run("geocoder_failure_yields_empty", func(t *testing.T) {
		svc := New(repo, nil, nil, stubGeocoder{err: errors.New("offline")}, fakeClock{t: now}, citymatch.NewMatcher())
		assert.Equal(t, "", svc.ResolveArea(ctx, 40.65, -73.95))
	})

	t.Run("geocoder_result_is_trimmed", func(t *testing.T) {
		svc := New(repo, nil, nil, stubGeocoder{area: " Brooklyn, NY "}, fakeClock{t: now}, citymatch.NewMatcher())
		assert.Equal(t, "Brooklyn, NY", svc.ResolveArea(ctx, 40.65, -73.95))
	})
}
