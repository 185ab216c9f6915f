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

type UploadRepo struct {
	db *sql.DB
}

func NewUploadRepo(db *sql.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

const uploadCols = `id, owner_id, listing_id, purpose, status, raw_object_key, mime, size_bytes, derived_keys, error_message, created_at, updated_at`

func scanUpload(row rowScanner) (*domain.Upload, error) {
	var (
		u          domain.Upload
		listingID  sql.NullString
		purpose    string
		status     string
		derivedRaw []byte
	)
	err := row.Scan(
		&u.ID,
		&u.OwnerID,
		&listingID,
		&purpose,
		&status,
		&u.RawObjectKey,
		&u.MIME,
		&u.SizeBytes,
		&derivedRaw,
		&u.ErrorMessage,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ListingID = listingID.String
	u.Purpose = domain.UploadPurpose(purpose)
	u.Status = domain.UploadStatus(status)
	if len(derivedRaw) > 0 {
		if err := json.Unmarshal(derivedRaw, &u.DerivedKeys); err != nil {
			return nil, fmt.Errorf("decode derived_keys: %w", err)
		}
	}
	return &u, nil
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func derivedJSON(derived map[string]string) ([]byte, error) {
	if len(derived) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(derived)
}

func (r *UploadRepo) Create(ctx context.Context, u *domain.Upload) error {
	derived, err := derivedJSON(u.DerivedKeys)
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
INSERT INTO media_uploads (id, owner_id, listing_id, purpose, status, raw_object_key, mime, size_bytes, derived_keys, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);
`
	_, err = r.db.ExecContext(ctx, q,
		u.ID, u.OwnerID, nullableID(u.ListingID), string(u.Purpose), string(u.Status),
		u.RawObjectKey, u.MIME, u.SizeBytes, derived, u.ErrorMessage, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UploadRepo) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrUploadNotFound()
	}

	const q = `
SELECT ` + uploadCols + `
FROM media_uploads
WHERE id = $1
LIMIT 1;
`
	u, err := scanUpload(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUploadNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UploadRepo) Update(ctx context.Context, u *domain.Upload) error {
	derived, err := derivedJSON(u.DerivedKeys)
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
UPDATE media_uploads
SET listing_id = $2,
    status = $3,
    size_bytes = $4,
    derived_keys = $5,
    error_message = $6,
    updated_at = $7
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q,
		u.ID, nullableID(u.ListingID), string(u.Status), u.SizeBytes, derived, u.ErrorMessage, u.UpdatedAt,
	)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUploadNotFound()
	}
	return nil
}

func (r *UploadRepo) CountByListing(ctx context.Context, listingID string) (int, error) {
	const q = `
SELECT COUNT(*)
FROM media_uploads
WHERE listing_id = $1 AND status <> $2;
`
	var n int
	err := r.db.QueryRowContext(ctx, q, listingID, string(domain.UploadFailed)).Scan(&n)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

func (r *UploadRepo) ListByListing(ctx context.Context, listingID string) ([]*domain.Upload, error) {
	const q = `
SELECT ` + uploadCols + `
FROM media_uploads
WHERE listing_id = $1
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

func (r *UploadRepo) ListByListings(ctx context.Context, listingIDs []string) (map[string][]*domain.Upload, error) {
	out := make(map[string][]*domain.Upload, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	// IN list built positionally; id count is bounded by the page size.
	placeholders := make([]string, len(listingIDs))
	args := make([]any, len(listingIDs))
	for i, id := range listingIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	q := `SELECT ` + uploadCols + ` FROM media_uploads WHERE listing_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at ASC, id ASC;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	uploads, err := collectUploads(rows)
	if err != nil {
		return nil, err
	}
	for _, u := range uploads {
		out[u.ListingID] = append(out[u.ListingID], u)
	}
	return out, nil
}

func (r *UploadRepo) ListStale(ctx context.Context, pendingOlderThan, failedOlderThan time.Duration, limit int) ([]*domain.Upload, error) {
	if limit <= 0 {
		limit = 100
	}

	const q = `
SELECT ` + uploadCols + `
FROM media_uploads
WHERE (status = $1 AND created_at < NOW() - $2::interval)
   OR (status = $3 AND updated_at < NOW() - $4::interval)
ORDER BY created_at ASC
LIMIT $5;
`
	rows, err := r.db.QueryContext(ctx, q,
		string(domain.UploadPending), intervalArg(pendingOlderThan),
		string(domain.UploadFailed), intervalArg(failedOlderThan),
		limit,
	)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

func (r *UploadRepo) ListStalled(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Upload, error) {
	if limit <= 0 {
		limit = 100
	}

	const q = `
SELECT ` + uploadCols + `
FROM media_uploads
WHERE status = $1 AND updated_at < NOW() - $2::interval
ORDER BY updated_at ASC
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, string(domain.UploadUploaded), intervalArg(olderThan), limit)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

func (r *UploadRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM media_uploads WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// intervalArg renders a duration as a Postgres interval literal.
func intervalArg(d time.Duration) string {
	return fmt.Sprintf("%d milliseconds", d.Milliseconds())
}

func collectUploads(rows *sql.Rows) ([]*domain.Upload, error) {
	var out []*domain.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
