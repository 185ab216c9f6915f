package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/application/listing"
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/dto"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
	"github.com/localmart/marketplace-service/internal/transport/http/validate"
)

// AdminHandler serves the moderation surface. RBAC happens in the router;
// these handlers run with an admin identity already established.
type AdminHandler struct {
	listings *listing.Service
	users    *auth.Service
}

func NewAdminHandler(listings *listing.Service, users *auth.Service) *AdminHandler {
	return &AdminHandler{listings: listings, users: users}
}

// DeleteListing is the takedown path. Same soft delete as the owner flow,
// with an audit line naming the acting admin.
func (h *AdminHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	if err := h.listings.Delete(r.Context(), id, middleware.UserID(r), middleware.Role(r), "moderation takedown"); err != nil {
		response.WriteError(w, r, err)
		return
	}

	zlog.Warn().
		Str("listing_id", id).
		Str("admin_id", middleware.UserID(r)).
		Msg("listing_takedown")
	response.NoContent(w)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	u, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToUserView(u))
}
