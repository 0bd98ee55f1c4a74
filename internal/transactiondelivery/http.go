// Package transactiondelivery manages delivery layer of ledger records.
package transactiondelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	List(ctx context.Context, requester, owner string, pageSize, pageID int32) ([]domain.Transaction, error)
	Get(ctx context.Context, requester, owner, reference string) (domain.Transaction, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) *Handler {
	return &Handler{service: ts}
}

type listURI struct {
	Owner string `uri:"owner" binding:"required"`
}

type listQuery struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1"`
}

type getURI struct {
	Owner     string `uri:"owner" binding:"required"`
	Reference string `uri:"reference" binding:"required"`
}

type listResponse struct {
	Data []domain.Transaction `json:"data"`
}

type getResponse struct {
	Data domain.Transaction `json:"data"`
}

// List handles http request to page through the records of an owner.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri listURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	var q listQuery
	if err := gctx.ShouldBindQuery(&q); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	txs, err := h.service.List(ctx, middleware.Owner(gctx), uri.Owner, q.PageSize, q.PageID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(web.ErrorStatus(err))

		return
	}

	gctx.JSON(http.StatusOK, listResponse{Data: txs})
}

// Get handles http request to read a single record by its reference.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri getURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	tx, err := h.service.Get(ctx, middleware.Owner(gctx), uri.Owner, uri.Reference)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(web.ErrorStatus(err))

		return
	}

	gctx.JSON(http.StatusOK, getResponse{Data: tx})
}
