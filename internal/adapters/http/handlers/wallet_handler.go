// Package handlers - WalletHandler exposes the wallet operations:
// topup, bonus, spend, balance and transaction history.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coinvault/coinvault/internal/adapters/http/common"
	"github.com/coinvault/coinvault/internal/adapters/http/middleware"
	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// IdempotencyKeyHeader is the mandatory replay header on mutating endpoints.
const IdempotencyKeyHeader = "Idempotency-Key"

// Use case interfaces, narrowed to what the handler calls.

type TopupUseCase interface {
	Execute(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error)
}

type BonusUseCase interface {
	Execute(ctx context.Context, cmd dtos.BonusCommand) (*dtos.OperationResult, error)
}

type SpendUseCase interface {
	Execute(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error)
}

type GetBalanceUseCase interface {
	Execute(ctx context.Context, q dtos.BalanceQuery) (*dtos.WalletBalanceDTO, error)
}

type GetHistoryUseCase interface {
	Execute(ctx context.Context, q dtos.HistoryQuery) (*dtos.TransactionHistoryDTO, error)
}

// Request bodies

// TopupRequest is the body of POST /wallets/topup.
type TopupRequest struct {
	UserID           string `json:"user_id" binding:"required,max=100"`
	AssetCode        string `json:"asset_code" binding:"required,asset_code"`
	Amount           string `json:"amount" binding:"required,money_amount"`
	PaymentReference string `json:"payment_reference" binding:"omitempty,max=255"`
	Description      string `json:"description" binding:"omitempty,max=500"`
}

// BonusRequest is the body of POST /wallets/bonus.
type BonusRequest struct {
	UserID    string `json:"user_id" binding:"required,max=100"`
	AssetCode string `json:"asset_code" binding:"required,asset_code"`
	Amount    string `json:"amount" binding:"required,money_amount"`
	Reason    string `json:"reason" binding:"required,max=500"`
}

// SpendRequest is the body of POST /wallets/spend.
type SpendRequest struct {
	UserID      string `json:"user_id" binding:"required,max=100"`
	AssetCode   string `json:"asset_code" binding:"required,asset_code"`
	Amount      string `json:"amount" binding:"required,money_amount"`
	ItemID      string `json:"item_id" binding:"omitempty,max=255"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// WalletHandler wires the wallet endpoints to their use cases.
type WalletHandler struct {
	topup   TopupUseCase
	bonus   BonusUseCase
	spend   SpendUseCase
	balance GetBalanceUseCase
	history GetHistoryUseCase
	debug   bool
}

// NewWalletHandler creates the handler.
func NewWalletHandler(
	topup TopupUseCase,
	bonus BonusUseCase,
	spend SpendUseCase,
	balance GetBalanceUseCase,
	history GetHistoryUseCase,
	debug bool,
) *WalletHandler {
	return &WalletHandler{
		topup:   topup,
		bonus:   bonus,
		spend:   spend,
		balance: balance,
		history: history,
		debug:   debug,
	}
}

// Topup handles POST /api/v1/wallets/topup.
//
// Posting responses are written as the exact bytes recorded for the
// idempotency key, so a replay is byte-equal to the first response.
func (h *WalletHandler) Topup(c *gin.Context) {
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var req TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, bindingErrorFields(err))
		return
	}

	amount, err := valueobjects.NewPositiveMoney(req.Amount)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "amount", Message: err.Error()}})
		return
	}

	result, err := h.topup.Execute(c.Request.Context(), dtos.TopupCommand{
		UserID:           req.UserID,
		AssetCode:        req.AssetCode,
		Amount:           amount,
		IdempotencyKey:   key,
		RequestPath:      c.FullPath(),
		RequestMethod:    c.Request.Method,
		PaymentReference: req.PaymentReference,
		Description:      req.Description,
	})
	h.writePostingResult(c, "TOPUP", result, err)
}

// Bonus handles POST /api/v1/wallets/bonus.
func (h *WalletHandler) Bonus(c *gin.Context) {
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var req BonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, bindingErrorFields(err))
		return
	}

	amount, err := valueobjects.NewPositiveMoney(req.Amount)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "amount", Message: err.Error()}})
		return
	}

	result, err := h.bonus.Execute(c.Request.Context(), dtos.BonusCommand{
		UserID:         req.UserID,
		AssetCode:      req.AssetCode,
		Amount:         amount,
		IdempotencyKey: key,
		RequestPath:    c.FullPath(),
		RequestMethod:  c.Request.Method,
		Reason:         req.Reason,
	})
	h.writePostingResult(c, "BONUS", result, err)
}

// Spend handles POST /api/v1/wallets/spend.
func (h *WalletHandler) Spend(c *gin.Context) {
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var req SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, bindingErrorFields(err))
		return
	}

	amount, err := valueobjects.NewPositiveMoney(req.Amount)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "amount", Message: err.Error()}})
		return
	}

	result, err := h.spend.Execute(c.Request.Context(), dtos.SpendCommand{
		UserID:         req.UserID,
		AssetCode:      req.AssetCode,
		Amount:         amount,
		IdempotencyKey: key,
		RequestPath:    c.FullPath(),
		RequestMethod:  c.Request.Method,
		ItemID:         req.ItemID,
		Description:    req.Description,
	})
	h.writePostingResult(c, "SPEND", result, err)
}

// GetBalance handles GET /api/v1/wallets/:user_id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.Param("user_id")
	assetCode := c.Query("asset_code")
	if assetCode == "" {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "asset_code", Message: "is required"}})
		return
	}

	dto, err := h.balance.Execute(c.Request.Context(), dtos.BalanceQuery{
		UserID:    userID,
		AssetCode: assetCode,
	})
	if err != nil {
		common.HandleDomainError(c, err, h.debug)
		return
	}

	common.Success(c, http.StatusOK, dto)
}

// GetHistory handles GET /api/v1/wallets/:user_id/transactions.
func (h *WalletHandler) GetHistory(c *gin.Context) {
	userID := c.Param("user_id")

	limit, err := parseQueryInt(c, "limit", 0)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "limit", Message: "must be an integer"}})
		return
	}
	offset, err := parseQueryInt(c, "offset", 0)
	if err != nil {
		common.ValidationErrorResponse(c, []common.FieldError{{Field: "offset", Message: "must be an integer"}})
		return
	}

	dto, err := h.history.Execute(c.Request.Context(), dtos.HistoryQuery{
		UserID:    userID,
		AssetCode: c.Query("asset_code"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		common.HandleDomainError(c, err, h.debug)
		return
	}

	common.Success(c, http.StatusOK, dto)
}

// writePostingResult maps a posting outcome to the response and bumps the
// business counters.
func (h *WalletHandler) writePostingResult(c *gin.Context, kind string, result *dtos.OperationResult, err error) {
	if err != nil {
		middleware.TransfersTotal.WithLabelValues(kind, "error").Inc()
		common.HandleDomainError(c, err, h.debug)
		return
	}

	if result.Replayed {
		middleware.IdempotentReplaysTotal.WithLabelValues(kind).Inc()
	} else {
		middleware.TransfersTotal.WithLabelValues(kind, "completed").Inc()
	}

	common.Raw(c, result.Status, result.Body)
}

func parseQueryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
