package messaging

import (
	"context"

	"github.com/localmart/marketplace-service/internal/domain"
)

// Send appends a message to an existing conversation. The sender must be one
// of the two participants.
func (s *Service) Send(ctx context.Context, conversationID, senderID, body string) (*domain.Message, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(senderID) {
		return nil, domain.ErrNotParticipant()
	}
	return s.appendMessage(ctx, conv, senderID, body)
}

// appendMessage persists the message, bumps the thread's activity timestamp
// and emits message.sent.
func (s *Service) appendMessage(ctx context.Context, conv *domain.Conversation, senderID, body string) (*domain.Message, error) {
	now := s.clock.Now()

	msg, err := domain.NewMessage(conv.ID, senderID, body, now)
	if err != nil {
		return nil, err
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, err
	}

	conv.Touch(now)
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, err
	}

	s.publishSent(ctx, conv, msg)
	return msg, nil
}
