package messaging

import (
	"context"
	"strings"

	"github.com/localmart/marketplace-service/internal/domain"
)

type ConversationPage struct {
	Items      []*domain.Conversation
	NextCursor string
}

type MessagePage struct {
	Items      []*domain.Message
	NextCursor string
}

// ListConversations returns the user's inbox, most recent activity first.
func (s *Service) ListConversations(ctx context.Context, userID string, pageSize int, cursor string) (ConversationPage, error) {
	if strings.TrimSpace(userID) == "" {
		return ConversationPage{}, domain.ErrForbidden()
	}
	pageSize = clampPageSize(pageSize)

	afterLast, afterID, hasCursor, err := parseCursorOrEmpty(cursor)
	if err != nil {
		return ConversationPage{}, err
	}

	items, err := s.convs.ListByUserKeyset(ctx, userID, pageSize, hasCursor, afterLast, afterID)
	if err != nil {
		return ConversationPage{}, err
	}

	next := ""
	if len(items) == pageSize {
		last := items[len(items)-1]
		next = formatCursor(last.LastMessageAt.UTC(), last.ID)
	}
	return ConversationPage{Items: items, NextCursor: next}, nil
}

// ListMessages pages through one thread, newest first. Only participants may
// read it.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID string, pageSize int, cursor string) (MessagePage, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return MessagePage{}, err
	}
	if !conv.IsParticipant(userID) {
		return MessagePage{}, domain.ErrNotParticipant()
	}
	pageSize = clampPageSize(pageSize)

	afterCreated, afterID, hasCursor, err := parseCursorOrEmpty(cursor)
	if err != nil {
		return MessagePage{}, err
	}

	items, err := s.msgs.ListByConversationKeyset(ctx, conversationID, pageSize, hasCursor, afterCreated, afterID)
	if err != nil {
		return MessagePage{}, err
	}

	next := ""
	if len(items) == pageSize {
		last := items[len(items)-1]
		next = formatCursor(last.CreatedAt.UTC(), last.ID)
	}
	return MessagePage{Items: items, NextCursor: next}, nil
}
