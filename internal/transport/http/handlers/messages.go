package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/localmart/marketplace-service/internal/application/messaging"
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/dto"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
	"github.com/localmart/marketplace-service/internal/transport/http/validate"
)

type MessagesHandler struct {
	svc *messaging.Service
}

func NewMessagesHandler(svc *messaging.Service) *MessagesHandler {
	return &MessagesHandler{svc: svc}
}

// Start opens (or reuses) the caller's conversation about a listing and
// sends the first message.
func (h *MessagesHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartConversationRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	conv, msg, err := h.svc.Start(r.Context(), req.ListingID, middleware.UserID(r), req.Body)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, r, map[string]any{
		"conversation": dto.ToConversationView(conv),
		"message":      dto.ToMessageView(msg),
	})
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")
	if !validate.IsUUID(convID) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}
	var req dto.SendMessageRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	msg, err := h.svc.Send(r.Context(), convID, middleware.UserID(r), req.Body)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, r, dto.ToMessageView(msg))
}

func (h *MessagesHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	cursor := r.URL.Query().Get("cursor")

	page, err := h.svc.ListConversations(r.Context(), middleware.UserID(r), pageSize, cursor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	out := make([]dto.ConversationView, 0, len(page.Items))
	for _, c := range page.Items {
		out = append(out, dto.ToConversationView(c))
	}
	response.OK(w, r, dto.Page[dto.ConversationView]{Items: out, NextCursor: page.NextCursor})
}

func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")
	if !validate.IsUUID(convID) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	cursor := r.URL.Query().Get("cursor")

	page, err := h.svc.ListMessages(r.Context(), convID, middleware.UserID(r), pageSize, cursor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	out := make([]dto.MessageView, 0, len(page.Items))
	for _, m := range page.Items {
		out = append(out, dto.ToMessageView(m))
	}
	response.OK(w, r, dto.Page[dto.MessageView]{Items: out, NextCursor: page.NextCursor})
}
