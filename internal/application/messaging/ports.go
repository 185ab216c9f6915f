package messaging

import (
	"context"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

/*
ConversationRepo
----------------
Persistence port for conversations. GetByListingAndBuyer returns
domain.ErrConversationNotFound when the pair has no thread yet.
*/
type ConversationRepo interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*domain.Conversation, error)
	Update(ctx context.Context, c *domain.Conversation) error

	// Keyset page of the user's threads, newest activity first, ordered by
	// (last_message_at, id) descending. With hasCursor, only rows strictly
	// after the cursor position are returned.
	ListByUserKeyset(ctx context.Context, userID string, pageSize int, hasCursor bool, afterLast time.Time, afterID string) ([]*domain.Conversation, error)
}

/*
MessageRepo
-----------
*/
type MessageRepo interface {
	Create(ctx context.Context, m *domain.Message) error
	// Keyset page ordered by (created_at, id) descending.
	ListByConversationKeyset(ctx context.Context, conversationID string, pageSize int, hasCursor bool, afterCreated time.Time, afterID string) ([]*domain.Message, error)
}

/*
ListingReader
-------------
Narrow read port into the listings context. Deleted listings surface as
not found.
*/
type ListingReader interface {
	Get(ctx context.Context, id string) (*domain.Listing, error)
}

/*
EventPublisher
--------------
message.sent fan-out for mail/push consumers.
*/
type MessageSentEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	ListingID      string `json:"listing_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
}

type EventPublisher interface {
	PublishMessageSent(ctx context.Context, evt MessageSentEvent) error
}

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}
