// Package rest exposes the study engine JSON API.
//
// The API mirrors the study frontend contract: assignment and submission
// posts plus read-only study content. Transport parsing stays here; all
// allocation semantics live in the balancer service.
package rest

import (
	"net/http"

	"github.com/StanNowak/Surveys/internal/services/study/auth"
	"github.com/StanNowak/Surveys/internal/services/study/balancer"
	"github.com/StanNowak/Surveys/internal/services/study/content"
	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

// Handler serves the study engine HTTP API.
type Handler struct {
	balancer  *balancer.Service
	responses storage.ResponseStore
	library   *content.Library
	verifier  *auth.Verifier
}

// NewHandler creates an API handler over the study services.
func NewHandler(balancerService *balancer.Service, responses storage.ResponseStore, library *content.Library, verifier *auth.Verifier) *Handler {
	return &Handler{
		balancer:  balancerService,
		responses: responses,
		library:   library,
		verifier:  verifier,
	}
}

// Routes registers the API routes on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("POST /api/studies/{study}/assign", h.requireOptionalAuth(h.handleAssign))
	mux.HandleFunc("POST /api/studies/{study}/submit", h.requireOptionalAuth(h.handleSubmit))
	mux.HandleFunc("GET /api/studies/{study}/content/{document}", h.requireOptionalAuth(h.handleContent))
	mux.HandleFunc("GET /api/studies/{study}/config", h.requireOptionalAuth(h.handleConfig))
}
