package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crowdgov/internal/domain"
	"crowdgov/internal/ledger"
	"crowdgov/pkg/logger"
)

type LedgerApproveRequest struct {
	Spender string `json:"spender" validate:"required,max=255"`
	Amount  uint64 `json:"amount"`
}

type ExchangeRequest struct {
	Payment uint64 `json:"payment" validate:"gt=0"`
}

type RedeemRequest struct {
	Units uint64 `json:"units" validate:"gt=0"`
}

type MintRequest struct {
	To     string `json:"to" validate:"required,max=255"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

type TransferRequest struct {
	To     string `json:"to" validate:"required,max=255"`
	Amount uint64 `json:"amount"`
}

// BalanceResponse reports a principal's holdings
type BalanceResponse struct {
	Principal       domain.Principal `json:"principal"`
	Balance         uint64           `json:"balance"`
	EscrowAllowance uint64           `json:"escrow_allowance"`
}

// LedgerHandler exposes the token collaborator for local and test deployments
type LedgerHandler struct {
	ledger ledger.Ledger
	escrow domain.Principal
	logger *logger.Logger
}

func NewLedgerHandler(l ledger.Ledger, escrow domain.Principal, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: l, escrow: escrow, logger: log}
}

// Balance handles GET /api/v1/ledger/balances/{principal}
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	p := domain.Principal(chi.URLParam(r, "principal"))
	h.respondBalance(w, r, p)
}

// Supply handles GET /api/v1/ledger/supply
func (h *LedgerHandler) Supply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.ledger.TotalSupply(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	reserve, err := h.ledger.Reserve(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{"total_supply": supply, "reserve": reserve})
}

// Approve handles POST /api/v1/ledger/approve
func (h *LedgerHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req LedgerApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	spender := domain.Principal(req.Spender)
	if err := h.ledger.Approve(r.Context(), caller, spender, req.Amount); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"owner":     caller,
		"spender":   spender,
		"allowance": req.Amount,
	})
}

// Exchange handles POST /api/v1/ledger/exchange
func (h *LedgerHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req ExchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	units, err := h.ledger.Exchange(r.Context(), caller, req.Payment)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.WithFields(map[string]interface{}{"buyer": caller, "payment": req.Payment, "units": units}).Info("Units exchanged")
	respondJSON(w, http.StatusOK, map[string]uint64{"payment": req.Payment, "units": units})
}

// Redeem handles POST /api/v1/ledger/redeem
func (h *LedgerHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req RedeemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	payout, err := h.ledger.Redeem(r.Context(), caller, req.Units)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.WithFields(map[string]interface{}{"seller": caller, "units": req.Units, "payout": payout}).Info("Units redeemed")
	respondJSON(w, http.StatusOK, map[string]uint64{"units": req.Units, "payout": payout})
}

// Mint handles POST /api/v1/ledger/mint (admin only)
func (h *LedgerHandler) Mint(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req MintRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	to := domain.Principal(req.To)
	if err := h.ledger.Mint(r.Context(), caller, to, req.Amount); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondBalance(w, r, to)
}

// Transfer handles POST /api/v1/ledger/transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.ledger.Transfer(r.Context(), caller, domain.Principal(req.To), req.Amount); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondBalance(w, r, caller)
}

func (h *LedgerHandler) respondBalance(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	balance, err := h.ledger.BalanceOf(r.Context(), p)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	allowance, err := h.ledger.Allowance(r.Context(), p, h.escrow)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, BalanceResponse{Principal: p, Balance: balance, EscrowAllowance: allowance})
}
