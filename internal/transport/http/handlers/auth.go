package handlers

import (
	"net/http"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/dto"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
	"github.com/localmart/marketplace-service/internal/transport/http/validate"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	zlog.Info().Str("user_id", res.User.ID).Msg("user_registered")
	response.Created(w, r, dto.AuthData{
		User:   dto.ToUserView(res.User),
		Tokens: toTokensView(res.Tokens),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	zlog.Info().Str("user_id", res.User.ID).Msg("user_logged_in")
	response.OK(w, r, dto.AuthData{
		User:   dto.ToUserView(res.User),
		Tokens: toTokensView(res.Tokens),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	toks, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, map[string]dto.TokensView{"tokens": toTokensView(toks)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

// RevokeSessions kills every refresh session of the caller and invalidates
// outstanding access tokens via the version bump.
func (h *AuthHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeAll(r.Context(), middleware.UserID(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	zlog.Info().Str("user_id", middleware.UserID(r)).Msg("sessions_revoked")
	response.NoContent(w)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), middleware.UserID(r), req.CurrentPassword, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUserByID(r.Context(), middleware.UserID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToUserView(u))
}

func toTokensView(t auth.AuthTokens) dto.TokensView {
	return dto.TokensView{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}

// staffOrSelf gates reads of another user's resource.
func staffOrSelf(r *http.Request, ownerID string) error {
	uid := middleware.UserID(r)
	if uid == ownerID {
		return nil
	}
	if domain.RoleRank(middleware.Role(r)) >= domain.RoleRank(string(domain.RoleModerator)) {
		return nil
	}
	return domain.ErrForbidden()
}
