// Package ledgerdelivery manages delivery layer of deposits, withdrawals and transfers.
package ledgerdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, owner, amount string) (domain.LedgerResult, error)
	Withdraw(ctx context.Context, owner, amount string) (domain.LedgerResult, error)
	Transfer(ctx context.Context, sender, recipient, amount string) (domain.TransferResult, error)
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns ledger handler.
func NewHandler(ls Service) *Handler {
	return &Handler{service: ls}
}

type ownerURI struct {
	Owner string `uri:"owner" binding:"required"`
}

type amountRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

type transferRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required,amount"`
}

type ledgerResponse struct {
	Data domain.LedgerResult `json:"data"`
}

type transferResponse struct {
	Data domain.TransferResult `json:"data"`
}

// bindOwner binds the path owner and checks it against the authenticated one.
func bindOwner(gctx *gin.Context) (string, bool) {
	l := zerolog.Ctx(gctx.Request.Context())

	var uri ownerURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return "", false
	}

	if uri.Owner != middleware.Owner(gctx) {
		l.Warn().Str("path_owner", uri.Owner).Msg("owner mismatch")
		gctx.JSON(http.StatusForbidden, web.Error(domain.ErrInvalidOwner))

		return "", false
	}

	return uri.Owner, true
}

func (h *Handler) applyAmount(gctx *gin.Context, op func(ctx context.Context, owner, amount string) (domain.LedgerResult, error)) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	var req amountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	result, err := op(ctx, owner, req.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(web.ErrorStatus(err))

		return
	}

	gctx.JSON(http.StatusOK, ledgerResponse{Data: result})
}

// Deposit handles http request to credit the owner's balance.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.applyAmount(gctx, h.service.Deposit)
}

// Withdraw handles http request to debit the owner's balance.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.applyAmount(gctx, h.service.Withdraw)
}

// Transfer handles http request to move money from the owner to a recipient.
func (h *Handler) Transfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	result, err := h.service.Transfer(ctx, owner, req.Recipient, req.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(web.ErrorStatus(err))

		return
	}

	gctx.JSON(http.StatusOK, transferResponse{Data: result})
}
