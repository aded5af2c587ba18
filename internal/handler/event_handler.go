package handler

import (
	"net/http"

	"crowdgov/internal/domain"
	"crowdgov/internal/events"
	"crowdgov/pkg/logger"
)

const maxEventPage = 500

type EventHandler struct {
	log    *events.Log
	logger *logger.Logger
}

func NewEventHandler(log *events.Log, l *logger.Logger) *EventHandler {
	return &EventHandler{log: log, logger: l}
}

// EventsResponse is one page of the in-memory event feed
type EventsResponse struct {
	Events  []domain.Event `json:"events"`
	NextSeq uint64         `json:"next_seq"`
}

// List handles GET /api/v1/events?after=&campaign_id=&type=&limit=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	after, err := queryUint(r, "after")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	campaign, err := queryUint(r, "campaign_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	limit, err := queryUint(r, "limit")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if limit == 0 || limit > maxEventPage {
		limit = maxEventPage
	}

	list := h.log.List(events.Filter{
		AfterSeq:   after,
		CampaignID: campaign,
		Type:       domain.EventType(r.URL.Query().Get("type")),
		Limit:      int(limit),
	})
	next := after
	if len(list) > 0 {
		next = list[len(list)-1].Seq
	}
	if list == nil {
		list = []domain.Event{}
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: list, NextSeq: next})
}
