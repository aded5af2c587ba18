package handler

import (
	"net/http"

	"crowdgov/internal/domain"
	"crowdgov/internal/engine"
	"crowdgov/pkg/logger"
)

// CastVoteRequest is the body of POST /api/v1/campaigns/{id}/vote
type CastVoteRequest struct {
	Agree *bool `json:"agree" validate:"required"`
}

type VoteHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

func NewVoteHandler(e *engine.Engine, log *logger.Logger) *VoteHandler {
	return &VoteHandler{engine: e, logger: log}
}

// Get handles GET /api/v1/campaigns/{id}/vote
func (h *VoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	v, err := h.engine.VoteOf(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCacheable(w, r, v)
}

// Start handles POST /api/v1/campaigns/{id}/vote/start
func (h *VoteHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	if err := h.engine.StartVote(r.Context(), caller, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondVote(w, r, id)
}

// Cast handles POST /api/v1/campaigns/{id}/vote
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req CastVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.engine.Vote(r.Context(), caller, id, *req.Agree); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondVote(w, r, id)
}

func (h *VoteHandler) respondVote(w http.ResponseWriter, r *http.Request, id uint64) {
	v, err := h.engine.VoteOf(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *VoteHandler) callerAndID(w http.ResponseWriter, r *http.Request) (domain.Principal, uint64, bool) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return domain.NoPrincipal, 0, false
	}
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return domain.NoPrincipal, 0, false
	}
	return caller, id, true
}
