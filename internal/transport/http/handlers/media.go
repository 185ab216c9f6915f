package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/dto"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
	"github.com/localmart/marketplace-service/internal/transport/http/validate"
)

type MediaHandler struct {
	svc *media.Service
}

func NewMediaHandler(svc *media.Service) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// CreateUpload hands the client a presigned PUT URL; the bytes never pass
// through the API.
func (h *MediaHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUploadRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.CreateUpload(r.Context(), middleware.UserID(r), media.CreateUploadCmd{
		Purpose:   req.Purpose,
		MIME:      req.MIME,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, r, dto.CreateUploadData{
		Upload:    dto.ToUploadView(res.Upload, nil),
		UploadURL: res.UploadURL,
		ExpiresAt: res.ExpiresAt,
	})
}

func (h *MediaHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	up, err := h.svc.CompleteUpload(r.Context(), id, middleware.UserID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToUploadView(up, h.svc.DerivedURLs(up)))
}

// Get reports upload status; clients poll it while the worker resizes.
// Owner or staff only.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	up, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := staffOrSelf(r, up.OwnerID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToUploadView(up, h.svc.DerivedURLs(up)))
}

func (h *MediaHandler) Attach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}
	var req dto.AttachUploadRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.AttachToListing(r.Context(), id, req.ListingID, middleware.UserID(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}
