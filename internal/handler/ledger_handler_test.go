package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdgov/internal/domain"
	"crowdgov/internal/engine"
	"crowdgov/internal/ledger"
	"crowdgov/pkg/errors"
	"crowdgov/pkg/logger"
)

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t, engine.ClaimPolicyGoal)

	rec := s.do(t, http.MethodPost, "/api/v1/ledger/mint", alice, MintRequest{To: "alice", Amount: 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/mint", admin, MintRequest{To: "alice", Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bal BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, alice, bal.Principal)
	assert.Equal(t, uint64(500), bal.Balance)

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/approve", alice, LedgerApproveRequest{Spender: string(escrow), Amount: 200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/balances/alice", domain.NoPrincipal, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, uint64(200), bal.EscrowAllowance)

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/transfer", alice, TransferRequest{To: "bob", Amount: 150})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, uint64(350), bal.Balance)

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/transfer", bob, TransferRequest{To: "alice", Amount: 151})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, errors.ErrorTypeInsufficient, decodeError(t, rec).Error.Type)
}

func TestLedgerExchangeRedeem(t *testing.T) {
	s := newTestServer(t, engine.ClaimPolicyGoal)

	rec := s.do(t, http.MethodPost, "/api/v1/ledger/exchange", bob, ExchangeRequest{Payment: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ex map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ex))
	assert.Equal(t, 3*ledger.DefaultExchangeRate, ex["units"])

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/redeem", bob, RedeemRequest{Units: ledger.DefaultExchangeRate})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rd map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rd))
	assert.Equal(t, uint64(1), rd["payout"])

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/supply", domain.NoPrincipal, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var supply map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &supply))
	assert.Equal(t, 2*ledger.DefaultExchangeRate, supply["total_supply"])
	assert.Equal(t, uint64(2), supply["reserve"])

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "Zero payment", path: "/api/v1/ledger/exchange", body: ExchangeRequest{}, wantStatus: http.StatusBadRequest},
		{name: "Redeem below one unit of payout", path: "/api/v1/ledger/redeem", body: RedeemRequest{Units: 1}, wantStatus: http.StatusBadRequest},
		{name: "Redeem more than held", path: "/api/v1/ledger/redeem", body: RedeemRequest{Units: 10 * ledger.DefaultExchangeRate}, wantStatus: http.StatusPaymentRequired},
		{name: "Transfer without recipient", path: "/api/v1/ledger/transfer", body: `{"amount":1}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, bob, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

type stubChecker struct {
	err error
}

func (c stubChecker) Health(context.Context) error {
	return c.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Checker
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "No dependencies",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: nil,
		},
		{
			name:       "All dependencies up",
			checks:     map[string]Checker{"redis": stubChecker{}, "postgres": stubChecker{}},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"redis": "ok", "postgres": "ok"},
		},
		{
			name:       "Redis down",
			checks:     map[string]Checker{"redis": stubChecker{err: stderrors.New("connection refused")}, "postgres": stubChecker{}},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantChecks: map[string]string{"redis": "unhealthy", "postgres": "ok"},
		},
		{
			name:       "Nil checker skipped",
			checks:     map[string]Checker{"redis": nil},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("test", tt.checks, logger.NewNop())
			rec := httptest.NewRecorder()
			h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
			assert.Equal(t, "test", resp.Version)
			assert.Equal(t, "crowdgov", resp.Service)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}
