package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/http/middleware"
	"github.com/portones-fc/access/internal/http/response"
	"github.com/portones-fc/access/internal/pass"
)

type generatePassRequest struct {
	PolicyType  string `json:"policy_type"`
	VisitorName string `json:"visitor_name,omitempty"`
	IDPhotoURL  string `json:"id_photo_url,omitempty"`
}

type revokePassRequest struct {
	QRID string `json:"qr_id"`
}

func (h *Handlers) generatePass(w http.ResponseWriter, r *http.Request) {
	var in generatePassRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	policyType, ok := domain.ParsePolicyType(in.PolicyType)
	if !ok {
		response.WriteError(w, http.StatusBadRequest, "unknown pass policy type", response.CodeUnknownPolicy)
		return
	}

	claims := middleware.Claims(r)
	created, err := h.passes.Issue(r.Context(), pass.IssueRequest{
		PolicyType:  policyType,
		HouseID:     claims.HouseID,
		IssuedBy:    claims.ResidentID,
		VisitorName: in.VisitorName,
		IDPhotoURL:  in.IDPhotoURL,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) listPasses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	views, err := h.passes.List(r.Context(), claims.HouseID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) revokePass(w http.ResponseWriter, r *http.Request) {
	var in revokePassRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.QRID == "" {
		response.BadRequest(w, "qr_id is required")
		return
	}

	claims := middleware.Claims(r)
	view, err := h.passes.Revoke(r.Context(), in.QRID, claims.HouseID, claims.ResidentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
