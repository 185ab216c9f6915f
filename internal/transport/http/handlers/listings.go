package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/localmart/marketplace-service/internal/application/listing"
	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/dto"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
	"github.com/localmart/marketplace-service/internal/transport/http/validate"
)

// maxQueryParamBytes caps q and loc before they reach the search engine.
const maxQueryParamBytes = 200

type ListingsHandler struct {
	svc   *listing.Service
	media *media.Service
}

func NewListingsHandler(svc *listing.Service, mediaSvc *media.Service) *ListingsHandler {
	return &ListingsHandler{svc: svc, media: mediaSvc}
}

// Search handles GET /listings?q=&loc=. Both parameters are optional and
// loosely typed: blank or oversized values are coerced, never rejected.
func (h *ListingsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := clampParam(r.URL.Query().Get("q"))
	loc := clampParam(r.URL.Query().Get("loc"))

	middleware.SearchesTotal.WithLabelValues(searchFilterLabel(q, loc)).Inc()

	rows, err := h.svc.Search(r.Context(), q, loc)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	thumbs, err := h.thumbsFor(r, rows)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	viewer := middleware.UserID(r)
	out := make([]dto.ListingView, 0, len(rows))
	for _, l := range rows {
		out = append(out, dto.ToListingView(l, viewer, thumbs[l.ID]))
	}
	response.OK(w, r, dto.Page[dto.ListingView]{Items: out})
}

func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	thumbs, err := h.thumbsFor(r, []*domain.Listing{l})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToListingView(l, middleware.UserID(r), thumbs[l.ID]))
}

func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateListingRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	l, err := h.svc.Create(r.Context(), middleware.UserID(r), listing.CreateCmd{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Location:    req.Location,
		Tags:        req.Tags,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, r, dto.ToListingView(l, middleware.UserID(r), nil))
}

func (h *ListingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}
	var req dto.UpdateListingRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	l, err := h.svc.Update(r.Context(), id, middleware.UserID(r), middleware.Role(r), listing.UpdateCmd{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		PriceCents:  req.PriceCents,
		Tags:        req.Tags,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToListingView(l, middleware.UserID(r), nil))
}

func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	if err := h.svc.Delete(r.Context(), id, middleware.UserID(r), middleware.Role(r), "removed by owner"); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *ListingsHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validate.IsUUID(id) {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{"id": "must be a valid uuid"}))
		return
	}

	l, err := h.svc.MarkSold(r.Context(), id, middleware.UserID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ToListingView(l, middleware.UserID(r), nil))
}

// Mine handles GET /listings/mine, the seller's own inventory including
// sold rows.
func (h *ListingsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	cursor := r.URL.Query().Get("cursor")

	res, err := h.svc.ListByOwner(r.Context(), middleware.UserID(r), pageSize, cursor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	thumbs, err := h.thumbsFor(r, res.Items)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	viewer := middleware.UserID(r)
	out := make([]dto.ListingView, 0, len(res.Items))
	for _, l := range res.Items {
		out = append(out, dto.ToListingView(l, viewer, thumbs[l.ID]))
	}
	response.OK(w, r, dto.Page[dto.ListingView]{Items: out, NextCursor: res.NextCursor})
}

// ResolveArea handles GET /listings/resolve-area?lat=&lon=, prefilling the
// location field from device coordinates.
func (h *ListingsHandler) ResolveArea(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		response.WriteError(w, r, domain.ErrValidationMeta("invalid query param", map[string]string{
			"lat": "must be a number",
			"lon": "must be a number",
		}))
		return
	}

	area := h.svc.ResolveArea(r.Context(), lat, lon)
	response.OK(w, r, map[string]string{"area": area})
}

func (h *ListingsHandler) thumbsFor(r *http.Request, rows []*domain.Listing) (map[string][]string, error) {
	if h.media == nil || len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, l := range rows {
		ids = append(ids, l.ID)
	}
	return h.media.ThumbURLsByListing(r.Context(), ids)
}

// clampParam trims and hard-caps a query parameter. The cap is in bytes; a
// rune split at the boundary is fine because downstream matching drops
// non-ASCII anyway.
func clampParam(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxQueryParamBytes {
		s = s[:maxQueryParamBytes]
	}
	return s
}

func searchFilterLabel(q, loc string) string {
	switch {
	case q == "" && loc == "":
		return "none"
	case loc == "":
		return "text"
	case q == "":
		return "location"
	default:
		return "text_location"
	}
}
