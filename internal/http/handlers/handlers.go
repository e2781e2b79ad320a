package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/gate"
	"github.com/portones-fc/access/internal/http/middleware"
	"github.com/portones-fc/access/internal/http/response"
	"github.com/portones-fc/access/internal/pass"
	"github.com/portones-fc/access/pkg/logger"
)

type Handlers struct {
	gates  gate.Service
	passes pass.Service
}

func New(gates gate.Service, passes pass.Service) *Handlers {
	return &Handlers{
		gates:  gates,
		passes: passes,
	}
}

// Routes assembles the v1 API surface. redeemLimit guards the anonymous
// redemption endpoint; pass nil to leave it unguarded.
func (h *Handlers) Routes(redeemLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Resident endpoints.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireResident)
		r.Get("/gates", h.listGates)
		r.Get("/gates/stream", h.streamStatus)
		r.Post("/gate/open", h.openGate)
		r.Post("/gate/close", h.closeGate)
		r.Post("/qr/generate", h.generatePass)
		r.Get("/qr/list", h.listPasses)
		r.Post("/qr/revoke", h.revokePass)
	})

	// Anonymous redemption at the gate.
	r.Group(func(r chi.Router) {
		if redeemLimit != nil {
			r.Use(redeemLimit)
		}
		r.Post("/gate/open-with-qr", h.openWithQR)
	})

	return r
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps service errors onto the response envelope. Anything
// not recognized is an internal error and gets logged.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrGateNotFound):
		response.NotFound(w, "gate not found")
	case errors.Is(err, domain.ErrGateDisabled):
		response.WriteError(w, http.StatusConflict, "gate is disabled", response.CodeGateDisabled)
	case errors.Is(err, domain.ErrUnauthorized):
		response.Forbidden(w, "not allowed to operate this gate")
	case errors.Is(err, domain.ErrTransportUnavailable):
		response.ServiceUnavailable(w, "gate controller link is down", response.CodeTransportUnavailable)
	case errors.Is(err, domain.ErrUnknownPolicy):
		response.WriteError(w, http.StatusBadRequest, "unknown pass policy type", response.CodeUnknownPolicy)
	case errors.Is(err, domain.ErrMissingName):
		response.WriteError(w, http.StatusBadRequest, "visitor name is required for this pass type", response.CodeMissingVisitorName)
	case errors.Is(err, domain.ErrMissingID):
		response.WriteError(w, http.StatusBadRequest, "id photo is required for this pass type", response.CodeMissingIDPhoto)
	case errors.Is(err, domain.ErrQuotaExceeded):
		response.WriteError(w, http.StatusConflict, "active pass limit reached for this house", response.CodeQuotaExceeded)
	case errors.Is(err, domain.ErrPassNotFound):
		response.NotFound(w, "pass not found")
	case errors.Is(err, domain.ErrPassExpired):
		response.WriteError(w, http.StatusGone, "pass has expired", response.CodePassExpired)
	case errors.Is(err, domain.ErrPassRevoked):
		response.WriteError(w, http.StatusGone, "pass was revoked", response.CodePassRevoked)
	case errors.Is(err, domain.ErrPassCompleted):
		response.WriteError(w, http.StatusGone, "pass has no uses left", response.CodePassCompleted)
	case errors.Is(err, domain.ErrAlreadyConsumed):
		response.WriteError(w, http.StatusConflict, "pass was just used at another gate", response.CodeAlreadyConsumed)
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", "error", err, "path", r.URL.Path)
		response.InternalError(w, "internal error")
	}
}
