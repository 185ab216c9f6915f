package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

const listingCols = `id, owner_id, title, description, price_cents, currency, location, tags, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l       domain.Listing
		tagsRaw []byte
		status  string
	)
	err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.Title,
		&l.Description,
		&l.PriceCents,
		&l.Currency,
		&l.Location,
		&tagsRaw,
		&status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = domain.ListingStatus(status)
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &l.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &l, nil
}

// tagsJSON always stores an array, never SQL NULL, so tags::text search
// stays predictable.
func tagsJSON(tags []string) ([]byte, error) {
	if len(tags) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(tags)
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	tags, err := tagsJSON(l.Tags)
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
INSERT INTO listings (id, owner_id, title, description, price_cents, currency, location, tags, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);
`
	_, err = r.db.ExecContext(ctx, q,
		l.ID, l.OwnerID, l.Title, l.Description, l.PriceCents, l.Currency, l.Location, tags, string(l.Status), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrListingNotFound()
	}

	const q = `
SELECT ` + listingCols + `
FROM listings
WHERE id = $1
LIMIT 1;
`
	l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return l, nil
}

func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	tags, err := tagsJSON(l.Tags)
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
UPDATE listings
SET title = $2,
    description = $3,
    price_cents = $4,
    currency = $5,
    location = $6,
    tags = $7,
    status = $8,
    updated_at = $9
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q,
		l.ID, l.Title, l.Description, l.PriceCents, l.Currency, l.Location, tags, string(l.Status), l.UpdatedAt,
	)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrListingNotFound()
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so user text means literal
// substring match.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// SearchText returns active listings whose title, description, location or
// tags contain textQuery, newest first. Empty textQuery matches everything.
func (r *ListingRepo) SearchText(ctx context.Context, textQuery string, limit int) ([]*domain.Listing, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		sb   strings.Builder
		args []any
	)
	argN := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + listingCols + ` FROM listings WHERE status = ` + argN(string(domain.ListingActive)))
	if q := strings.TrimSpace(textQuery); q != "" {
		pat := argN("%" + escapeLike(q) + "%")
		sb.WriteString(fmt.Sprintf(
			" AND (title ILIKE %[1]s OR description ILIKE %[1]s OR location ILIKE %[1]s OR tags::text ILIKE %[1]s)",
			pat,
		))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + argN(limit) + ";")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// DistinctActiveLocations is the candidate vocabulary for city matching: the
// raw location of every active listing, blanks excluded.
func (r *ListingRepo) DistinctActiveLocations(ctx context.Context) ([]string, error) {
	const q = `
SELECT DISTINCT location
FROM listings
WHERE status = $1 AND btrim(location) <> ''
ORDER BY location;
`
	rows, err := r.db.QueryContext(ctx, q, string(domain.ListingActive))
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// ListByOwnerKeyset pages an owner's listings (deleted excluded) ordered by
// (created_at, id) descending.
func (r *ListingRepo) ListByOwnerKeyset(ctx context.Context, ownerID string, pageSize int, hasCursor bool, afterCreated time.Time, afterID string) ([]*domain.Listing, error) {
	if pageSize <= 0 {
		pageSize = 20
	}

	var (
		sb   strings.Builder
		args []any
	)
	argN := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + listingCols + ` FROM listings WHERE owner_id = ` + argN(ownerID))
	sb.WriteString(` AND status <> ` + argN(string(domain.ListingDeleted)))
	if hasCursor {
		sb.WriteString(fmt.Sprintf(" AND (created_at, id) < (%s, %s)", argN(afterCreated), argN(afterID)))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + argN(pageSize) + ";")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()
	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]*domain.Listing, error) {
	var out []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
