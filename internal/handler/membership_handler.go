package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crowdgov/internal/domain"
	"crowdgov/internal/engine"
	"crowdgov/pkg/logger"
)

// MembershipDecisionRequest is the body of POST /api/v1/membership/approve
type MembershipDecisionRequest struct {
	User    string `json:"user" validate:"required,max=255"`
	Approve *bool  `json:"approve" validate:"required"`
}

// RevokeRequest is the body of POST /api/v1/membership/revoke
type RevokeRequest struct {
	User string `json:"user" validate:"required,max=255"`
}

type MembershipHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

func NewMembershipHandler(e *engine.Engine, log *logger.Logger) *MembershipHandler {
	return &MembershipHandler{engine: e, logger: log}
}

// Roster handles GET /api/v1/members
func (h *MembershipHandler) Roster(w http.ResponseWriter, r *http.Request) {
	respondCacheable(w, r, h.engine.Roster())
}

// Status handles GET /api/v1/members/{principal}
func (h *MembershipHandler) Status(w http.ResponseWriter, r *http.Request) {
	p := domain.Principal(chi.URLParam(r, "principal"))
	respondJSON(w, http.StatusOK, h.engine.Membership(p))
}

// Request handles POST /api/v1/membership/request
func (h *MembershipHandler) Request(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.engine.RequestMembership(r.Context(), caller); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Membership(caller))
}

// Leave handles POST /api/v1/membership/leave
func (h *MembershipHandler) Leave(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.engine.RequestLeave(r.Context(), caller); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Membership(caller))
}

// Approve handles POST /api/v1/membership/approve
func (h *MembershipHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req MembershipDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user := domain.Principal(req.User)
	if err := h.engine.ApproveMembership(r.Context(), caller, user, *req.Approve); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Membership(user))
}

// Revoke handles POST /api/v1/membership/revoke
func (h *MembershipHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req RevokeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user := domain.Principal(req.User)
	if err := h.engine.RejectMembership(r.Context(), caller, user); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Membership(user))
}
