package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageCols = `id, conversation_id, sender_id, body, created_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	const q = `
INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
VALUES ($1,$2,$3,$4,$5);
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *MessageRepo) ListByConversationKeyset(ctx context.Context, conversationID string, pageSize int, hasCursor bool, afterCreated time.Time, afterID string) ([]*domain.Message, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	var (
		sb   strings.Builder
		args []any
	)
	argN := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + messageCols + ` FROM messages WHERE conversation_id = ` + argN(conversationID))
	if hasCursor {
		sb.WriteString(fmt.Sprintf(" AND (created_at, id) < (%s, %s)", argN(afterCreated), argN(afterID)))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + argN(pageSize) + ";")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
