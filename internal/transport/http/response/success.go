package response

import (
	"net/http"

	"github.com/go-chi/render"
)

type Envelope struct {
	Data any `json:"data"`
}

// OK writes 200 with {"data": ...}.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Envelope{Data: data})
}

// Created writes 201 with {"data": ...}.
func Created(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Envelope{Data: data})
}

// NoContent writes 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
