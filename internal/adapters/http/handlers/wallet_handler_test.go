package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/application/dtos"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

// Use case stubs with overridable behaviour.

type stubTopup struct {
	fn func(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error)
}

func (s *stubTopup) Execute(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error) {
	return s.fn(ctx, cmd)
}

type stubBonus struct {
	fn func(ctx context.Context, cmd dtos.BonusCommand) (*dtos.OperationResult, error)
}

func (s *stubBonus) Execute(ctx context.Context, cmd dtos.BonusCommand) (*dtos.OperationResult, error) {
	return s.fn(ctx, cmd)
}

type stubSpend struct {
	fn func(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error)
}

func (s *stubSpend) Execute(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error) {
	return s.fn(ctx, cmd)
}

type stubBalance struct {
	fn func(ctx context.Context, q dtos.BalanceQuery) (*dtos.WalletBalanceDTO, error)
}

func (s *stubBalance) Execute(ctx context.Context, q dtos.BalanceQuery) (*dtos.WalletBalanceDTO, error) {
	return s.fn(ctx, q)
}

type stubHistory struct {
	fn func(ctx context.Context, q dtos.HistoryQuery) (*dtos.TransactionHistoryDTO, error)
}

func (s *stubHistory) Execute(ctx context.Context, q dtos.HistoryQuery) (*dtos.TransactionHistoryDTO, error) {
	return s.fn(ctx, q)
}

func newTestRouter(h *WalletHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	r := gin.New()
	r.POST("/api/v1/wallets/topup", h.Topup)
	r.POST("/api/v1/wallets/bonus", h.Bonus)
	r.POST("/api/v1/wallets/spend", h.Spend)
	r.GET("/api/v1/wallets/:user_id/balance", h.GetBalance)
	r.GET("/api/v1/wallets/:user_id/transactions", h.GetHistory)
	return r
}

func handlerWith(topup *stubTopup, spend *stubSpend) *WalletHandler {
	if topup == nil {
		topup = &stubTopup{fn: func(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error) {
			return &dtos.OperationResult{Status: 201, Body: []byte(`{}`)}, nil
		}}
	}
	if spend == nil {
		spend = &stubSpend{fn: func(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error) {
			return &dtos.OperationResult{Status: 201, Body: []byte(`{}`)}, nil
		}}
	}
	return NewWalletHandler(
		topup,
		&stubBonus{fn: func(ctx context.Context, cmd dtos.BonusCommand) (*dtos.OperationResult, error) {
			return &dtos.OperationResult{Status: 201, Body: []byte(`{}`)}, nil
		}},
		spend,
		&stubBalance{fn: func(ctx context.Context, q dtos.BalanceQuery) (*dtos.WalletBalanceDTO, error) {
			return &dtos.WalletBalanceDTO{UserID: q.UserID, AssetTypeCode: q.AssetCode, Balance: "0.00"}, nil
		}},
		&stubHistory{fn: func(ctx context.Context, q dtos.HistoryQuery) (*dtos.TransactionHistoryDTO, error) {
			return &dtos.TransactionHistoryDTO{Transactions: []dtos.TransactionDTO{}, PageSize: 50, Page: 1}, nil
		}},
		false,
	)
}

func postJSON(r *gin.Engine, path, idempotencyKey string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTopup_MissingIdempotencyKeyIs422(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	w := postJSON(r, "/api/v1/wallets/topup", "", map[string]any{
		"user_id": "alice", "asset_code": "GOLD_COIN", "amount": "100.00",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, w.Body.String(), IdempotencyKeyHeader)
}

func TestTopup_RejectsThreeFractionalDigits(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	w := postJSON(r, "/api/v1/wallets/topup", "k1", map[string]any{
		"user_id": "alice", "asset_code": "GOLD_COIN", "amount": "100.555",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "amount")
}

func TestTopup_RejectsNonPositiveAmount(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	w := postJSON(r, "/api/v1/wallets/topup", "k1", map[string]any{
		"user_id": "alice", "asset_code": "GOLD_COIN", "amount": "0.00",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTopup_WritesRecordedBytesVerbatim(t *testing.T) {
	recorded := []byte(`{"transaction_id":"abc","transaction_type":"TOPUP","status":"COMPLETED"}`)
	var gotCmd dtos.TopupCommand
	topup := &stubTopup{fn: func(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error) {
		gotCmd = cmd
		return &dtos.OperationResult{Status: 201, Body: recorded}, nil
	}}

	r := newTestRouter(handlerWith(topup, nil))
	w := postJSON(r, "/api/v1/wallets/topup", "key-42", map[string]any{
		"user_id": "alice", "asset_code": "GOLD_COIN", "amount": "100.00",
		"payment_reference": "stripe_pi_1", "description": "Purchase 100 Gold Coins",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, recorded, w.Body.Bytes())

	assert.Equal(t, "key-42", gotCmd.IdempotencyKey)
	assert.Equal(t, "alice", gotCmd.UserID)
	assert.Equal(t, "100.00", gotCmd.Amount.String())
	assert.Equal(t, "stripe_pi_1", gotCmd.PaymentReference)
}

func TestSpend_InsufficientFundsIs400(t *testing.T) {
	spend := &stubSpend{fn: func(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error) {
		return nil, domainErrors.NewInsufficientFunds("70.00", "9999.00")
	}}

	r := newTestRouter(handlerWith(nil, spend))
	w := postJSON(r, "/api/v1/wallets/spend", "k3", map[string]any{
		"user_id": "alice", "asset_code": "GOLD_COIN", "amount": "9999.00",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_FUNDS")
	assert.Contains(t, w.Body.String(), "70.00")
}

func TestSpend_UnknownWalletIs404(t *testing.T) {
	spend := &stubSpend{fn: func(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error) {
		return nil, domainErrors.ErrWalletNotFound
	}}

	r := newTestRouter(handlerWith(nil, spend))
	w := postJSON(r, "/api/v1/wallets/spend", "k4", map[string]any{
		"user_id": "bob", "asset_code": "GOLD_COIN", "amount": "30.00",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WALLET_NOT_FOUND")
}

func TestGetBalance_RequiresAssetCode(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/alice/balance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetBalance_OK(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/alice/balance?asset_code=GOLD_COIN", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alice"`)
	assert.Contains(t, w.Body.String(), `"GOLD_COIN"`)
}

func TestGetHistory_RejectsBadLimit(t *testing.T) {
	r := newTestRouter(handlerWith(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/alice/transactions?limit=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
