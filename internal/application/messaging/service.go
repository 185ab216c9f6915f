package messaging

import (
	"context"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/domain"
)

type Service struct {
	convs    ConversationRepo
	msgs     MessageRepo
	listings ListingReader
	pub      EventPublisher
	clock    Clock
}

func New(convs ConversationRepo, msgs MessageRepo, listings ListingReader, pub EventPublisher, clock Clock) *Service {
	if clock == nil {
		clock = sysClock{}
	}
	return &Service{
		convs:    convs,
		msgs:     msgs,
		listings: listings,
		pub:      pub,
		clock:    clock,
	}
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func (s *Service) publishSent(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	if s.pub == nil {
		return
	}
	recipient := conv.SellerID
	if msg.SenderID == conv.SellerID {
		recipient = conv.BuyerID
	}
	evt := MessageSentEvent{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		ListingID:      conv.ListingID,
		SenderID:       msg.SenderID,
		RecipientID:    recipient,
	}
	if err := s.pub.PublishMessageSent(ctx, evt); err != nil {
		zlog.Warn().Err(err).Str("conversation_id", conv.ID).Msg("message.sent publish failed")
	}
}

// -------- cursor helpers --------

func formatCursor(t time.Time, id string) string {
	return t.Format(time.RFC3339Nano) + "|" + id
}

func parseCursorOrEmpty(cur string) (time.Time, string, bool, error) {
	cur = strings.TrimSpace(cur)
	if cur == "" {
		return time.Time{}, "", false, nil
	}
	parts := strings.Split(cur, "|")
	if len(parts) != 2 {
		return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
	}
	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		if t, err = time.Parse(time.RFC3339, parts[0]); err != nil {
			return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
		}
	}
	id := strings.TrimSpace(parts[1])
	if id == "" {
		return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
	}
	return t.UTC(), id, true, nil
}

func clampPageSize(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 100 {
		return 100
	}
	return n
}
