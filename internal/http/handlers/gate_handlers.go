package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/http/middleware"
	"github.com/portones-fc/access/internal/http/response"
	"github.com/portones-fc/access/internal/utils"
)

type gateCommandRequest struct {
	GateID string `json:"gate_id"`
	Method string `json:"method,omitempty"`
}

type gateCommandResponse struct {
	GateID string            `json:"gate_id"`
	Status domain.GateStatus `json:"status"`
}

type redeemRequest struct {
	ShortCode string `json:"short_code"`
	GateID    string `json:"gate_id"`
}

type redeemResponse struct {
	PassID        string            `json:"pass_id"`
	Direction     domain.Direction  `json:"direction"`
	RemainingUses int               `json:"remaining_uses"`
	GateID        string            `json:"gate_id"`
	GateStatus    domain.GateStatus `json:"gate_status"`
}

func (h *Handlers) listGates(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	views, err := h.gates.ListGates(r.Context(), claims.ColoniaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) openGate(w http.ResponseWriter, r *http.Request) {
	var in gateCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.GateID == "" {
		response.BadRequest(w, "gate_id is required")
		return
	}

	method := domain.MethodApp
	if in.Method != "" {
		m, ok := domain.ParseCommandMethod(in.Method)
		if !ok {
			response.BadRequest(w, "invalid method")
			return
		}
		method = m
	}

	claims := middleware.Claims(r)
	if err := h.gates.OpenGate(r.Context(), in.GateID, claims.ResidentID, method); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// The command is in flight; the controller will confirm asynchronously.
	writeJSON(w, http.StatusAccepted, gateCommandResponse{GateID: in.GateID, Status: domain.GateOpening})
}

func (h *Handlers) closeGate(w http.ResponseWriter, r *http.Request) {
	var in gateCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.GateID == "" {
		response.BadRequest(w, "gate_id is required")
		return
	}

	claims := middleware.Claims(r)
	if err := h.gates.CloseGate(r.Context(), in.GateID, claims.ResidentID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, gateCommandResponse{GateID: in.GateID, Status: domain.GateClosing})
}

func (h *Handlers) openWithQR(w http.ResponseWriter, r *http.Request) {
	var in redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.GateID == "" {
		response.BadRequest(w, "gate_id is required")
		return
	}
	// A code that cannot normalize to a valid short code will never match a
	// stored pass; reject it before touching the store.
	if !utils.IsValidShortCode(in.ShortCode) {
		response.BadRequest(w, "malformed short code")
		return
	}

	red, err := h.passes.Redeem(r.Context(), in.ShortCode, in.GateID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{
		PassID:        red.Pass.ID,
		Direction:     red.Direction,
		RemainingUses: red.Pass.RemainingUses(),
		GateID:        red.Gate.ID,
		GateStatus:    domain.GateOpening,
	})
}
