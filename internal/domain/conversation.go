package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is the message thread between one interested buyer and the
// seller of one listing. At most one per (listing, buyer) pair.
type Conversation struct {
	ID            string
	ListingID     string
	BuyerID       string
	SellerID      string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
}

func NewConversation(listingID, buyerID, sellerID string, now time.Time) (*Conversation, error) {
	if strings.TrimSpace(listingID) == "" {
		return nil, ErrValidation("listing_id is required")
	}
	if strings.TrimSpace(buyerID) == "" || strings.TrimSpace(sellerID) == "" {
		return nil, ErrValidation("buyer_id and seller_id are required")
	}
	if buyerID == sellerID {
		return nil, ErrOwnListing()
	}
	t := now.UTC()
	return &Conversation{
		ID:            uuid.NewString(),
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		CreatedAt:     t,
		LastMessageAt: t,
	}, nil
}

func (c *Conversation) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.BuyerID || userID == c.SellerID)
}

// Touch bumps the activity timestamp used for inbox ordering.
func (c *Conversation) Touch(now time.Time) {
	c.LastMessageAt = now.UTC()
}

func NewMessage(conversationID, senderID, body string, now time.Time) (*Message, error) {
	body = strings.TrimSpace(body)
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrValidation("conversation_id is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, ErrValidation("sender_id is required")
	}
	if body == "" || len(body) > 2000 {
		return nil, ErrValidation("body must be 1..2000 chars")
	}
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now.UTC(),
	}, nil
}
