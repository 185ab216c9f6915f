package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/localmart/marketplace-service/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userCols = `id, email, username, password_hash, role, token_version, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.TokenVersion,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" || u.Email == "" || u.PasswordHash == "" {
		return domain.User{}, domain.ErrValidation("id, email and password_hash are required")
	}
	if u.Role == "" {
		u.Role = string(domain.RoleUser)
	}

	const q = `
INSERT INTO users (id, email, username, password_hash, role, token_version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + userCols + `;
`
	created, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Username, u.PasswordHash, u.Role, u.TokenVersion, u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		// unique_violation carries the constraint name; map it to the field
		// the client can fix.
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "users_username_key"):
			return domain.User{}, domain.ErrUsernameAlreadyExists()
		case strings.Contains(msg, "users_email_key"), strings.Contains(msg, "duplicate"):
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return created, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `
SELECT ` + userCols + `
FROM users
WHERE email = $1
LIMIT 1;
`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `
SELECT ` + userCols + `
FROM users
WHERE id = $1
LIMIT 1;
`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	if strings.TrimSpace(userID) == "" || newHash == "" {
		return domain.ErrValidation("user_id and password_hash are required")
	}

	const q = `
UPDATE users
SET password_hash = $2,
    updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, newHash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// BumpTokenVersion invalidates every token minted under the old version.
func (r *UserRepo) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	const q = `
UPDATE users
SET token_version = token_version + 1,
    updated_at = NOW()
WHERE id = $1
RETURNING token_version;
`
	var newVer int
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&newVer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound()
		}
		return 0, domain.ErrDBUnavailable(err)
	}
	return newVer, nil
}
