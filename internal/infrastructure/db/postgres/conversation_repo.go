package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationCols = `id, listing_id, buyer_id, seller_id, created_at, last_message_at`

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID,
		&c.ListingID,
		&c.BuyerID,
		&c.SellerID,
		&c.CreatedAt,
		&c.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	const q = `
INSERT INTO conversations (id, listing_id, buyer_id, seller_id, created_at, last_message_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.ListingID, c.BuyerID, c.SellerID, c.CreatedAt, c.LastMessageAt,
	)
	if err != nil {
		// unique (listing_id, buyer_id) races with GetByListingAndBuyer;
		// the service retries the lookup on conflict.
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return domain.ErrConversationExists()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrConversationNotFound()
	}

	const q = `
SELECT ` + conversationCols + `
FROM conversations
WHERE id = $1
LIMIT 1;
`
	c, err := scanConversation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func (r *ConversationRepo) GetByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*domain.Conversation, error) {
	const q = `
SELECT ` + conversationCols + `
FROM conversations
WHERE listing_id = $1 AND buyer_id = $2
LIMIT 1;
`
	c, err := scanConversation(r.db.QueryRowContext(ctx, q, listingID, buyerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func (r *ConversationRepo) Update(ctx context.Context, c *domain.Conversation) error {
	const q = `
UPDATE conversations
SET last_message_at = $2
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.LastMessageAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrConversationNotFound()
	}
	return nil
}

func (r *ConversationRepo) ListByUserKeyset(ctx context.Context, userID string, pageSize int, hasCursor bool, afterLast time.Time, afterID string) ([]*domain.Conversation, error) {
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

	uid := argN(userID)
	sb.WriteString(`SELECT ` + conversationCols + ` FROM conversations WHERE (buyer_id = ` + uid + ` OR seller_id = ` + uid + `)`)
	if hasCursor {
		sb.WriteString(fmt.Sprintf(" AND (last_message_at, id) < (%s, %s)", argN(afterLast), argN(afterID)))
	}
	sb.WriteString(" ORDER BY last_message_at DESC, id DESC LIMIT " + argN(pageSize) + ";")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
