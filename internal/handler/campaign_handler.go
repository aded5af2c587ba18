package handler

import (
	"net/http"
	"time"

	"crowdgov/internal/domain"
	"crowdgov/internal/engine"
	"crowdgov/internal/repository"
	"crowdgov/pkg/errors"
	"crowdgov/pkg/logger"
)

// LaunchRequest is the body of POST /api/v1/campaigns. Times are unix seconds.
type LaunchRequest struct {
	Target      string `json:"target" validate:"omitempty,max=255"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Goal        uint64 `json:"goal"`
	StartAt     int64  `json:"start_at" validate:"required,gt=0"`
	EndAt       int64  `json:"end_at" validate:"required,gt=0"`
}

// AmountRequest is the body of pledge and unpledge
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// CampaignResponse is the wire view of a campaign
type CampaignResponse struct {
	ID          uint64                `json:"id"`
	Creator     domain.Principal      `json:"creator"`
	Target      domain.Principal      `json:"target"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Goal        uint64                `json:"goal"`
	Pledged     uint64                `json:"pledged"`
	StartAt     int64                 `json:"start_at"`
	EndAt       int64                 `json:"end_at"`
	Claimed     bool                  `json:"claimed"`
	Ended       bool                  `json:"ended"`
	Status      domain.CampaignStatus `json:"status"`
}

func toCampaignResponse(c domain.Campaign, now time.Time) CampaignResponse {
	return CampaignResponse{
		ID:          c.ID,
		Creator:     c.Creator,
		Target:      c.Target,
		Title:       c.Title,
		Description: c.Description,
		Goal:        c.Goal,
		Pledged:     c.Pledged,
		StartAt:     c.StartAt.Unix(),
		EndAt:       c.EndAt.Unix(),
		Claimed:     c.Claimed,
		Ended:       c.Ended(now),
		Status:      c.Status(now),
	}
}

type CampaignHandler struct {
	engine  *engine.Engine
	journal repository.EventJournal
	logger  *logger.Logger
}

// NewCampaignHandler creates the handler. journal may be nil when no database is configured.
func NewCampaignHandler(e *engine.Engine, journal repository.EventJournal, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{engine: e, journal: journal, logger: log}
}

// List handles GET /api/v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	now := h.engine.Now()
	campaigns := h.engine.Campaigns()
	out := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c, now))
	}
	respondCacheable(w, r, map[string]interface{}{
		"campaigns": out,
		"count":     h.engine.Count(),
	})
}

// Get handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	c, err := h.engine.Campaign(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCacheable(w, r, toCampaignResponse(c, h.engine.Now()))
}

// Create handles POST /api/v1/campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req LaunchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	c, err := h.engine.Launch(r.Context(), caller, domain.LaunchInput{
		Target:      domain.Principal(req.Target),
		Title:       req.Title,
		Description: req.Description,
		Goal:        req.Goal,
		StartAt:     time.Unix(req.StartAt, 0),
		EndAt:       time.Unix(req.EndAt, 0),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCampaignResponse(c, h.engine.Now()))
}

// Cancel handles POST /api/v1/campaigns/{id}/cancel
func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller domain.Principal, id uint64) error {
		return h.engine.Cancel(r.Context(), caller, id)
	}, func(id uint64) interface{} {
		return map[string]interface{}{"id": id, "cancelled": true}
	})
}

// Claim handles POST /api/v1/campaigns/{id}/claim
func (h *CampaignHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller domain.Principal, id uint64) error {
		return h.engine.Claim(r.Context(), caller, id)
	}, h.campaignAfter)
}

// Pledge handles POST /api/v1/campaigns/{id}/pledge
func (h *CampaignHandler) Pledge(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.mutate(w, r, func(caller domain.Principal, id uint64) error {
		return h.engine.Pledge(r.Context(), caller, id, req.Amount)
	}, h.campaignAfter)
}

// Unpledge handles POST /api/v1/campaigns/{id}/unpledge
func (h *CampaignHandler) Unpledge(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.mutate(w, r, func(caller domain.Principal, id uint64) error {
		return h.engine.Unpledge(r.Context(), caller, id, req.Amount)
	}, h.campaignAfter)
}

// Refund handles POST /api/v1/campaigns/{id}/refund
func (h *CampaignHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var refunded uint64
	h.mutate(w, r, func(caller domain.Principal, id uint64) error {
		amount, err := h.engine.Refund(r.Context(), caller, id)
		refunded = amount
		return err
	}, func(id uint64) interface{} {
		return map[string]interface{}{"id": id, "refunded": refunded}
	})
}

// Pledges handles GET /api/v1/campaigns/{id}/pledges
func (h *CampaignHandler) Pledges(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	records, err := h.engine.Pledges(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCacheable(w, r, map[string]interface{}{"campaign_id": id, "pledges": records})
}

// History handles GET /api/v1/campaigns/{id}/history from the durable journal
func (h *CampaignHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, r, h.logger, &errors.AppError{
			Type:       errors.ErrorTypeExternal,
			Message:    "Event journal is not configured",
			StatusCode: http.StatusServiceUnavailable,
		})
		return
	}
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	after, err := queryUint(r, "after")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	limit, err := queryUint(r, "limit")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	evs, err := h.journal.ListByCampaign(r.Context(), id, after, int(min(limit, 1000)))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaign_id": id, "events": evs})
}

// mutate runs an authenticated operation on {id} and renders view(id) on success
func (h *CampaignHandler) mutate(w http.ResponseWriter, r *http.Request, op func(domain.Principal, uint64) error, view func(uint64) interface{}) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := campaignID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := op(caller, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view(id))
}

func (h *CampaignHandler) campaignAfter(id uint64) interface{} {
	c, err := h.engine.Campaign(id)
	if err != nil {
		return map[string]interface{}{"id": id}
	}
	return toCampaignResponse(c, h.engine.Now())
}
