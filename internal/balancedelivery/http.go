// Package balancedelivery manages delivery layer of balances.
package balancedelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by balance delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package balancedelivery
type Service interface {
	Open(ctx context.Context, requester, owner string) (domain.Balance, error)
	Get(ctx context.Context, requester, owner string) (domain.Balance, error)
	SetActive(ctx context.Context, requester, owner string, active bool) (domain.Balance, error)
}

// Handler facilitates balance delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns balance handler.
func NewHandler(bs Service) *Handler {
	return &Handler{service: bs}
}

type ownerURI struct {
	Owner string `uri:"owner" binding:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type response struct {
	Data domain.Balance `json:"data"`
}

func (h *Handler) respond(gctx *gin.Context, status int, b domain.Balance, err error) {
	if err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(web.ErrorStatus(err))

		return
	}

	gctx.JSON(status, response{Data: b})
}

func bindOwner(gctx *gin.Context) (string, bool) {
	var uri ownerURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return "", false
	}

	return uri.Owner, true
}

// Open handles http request to open a balance.
func (h *Handler) Open(gctx *gin.Context) {
	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	b, err := h.service.Open(gctx.Request.Context(), middleware.Owner(gctx), owner)
	h.respond(gctx, http.StatusCreated, b, err)
}

// Get handles http request to read a balance.
func (h *Handler) Get(gctx *gin.Context) {
	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	b, err := h.service.Get(gctx.Request.Context(), middleware.Owner(gctx), owner)
	h.respond(gctx, http.StatusOK, b, err)
}

// SetActive handles http request to freeze a balance.
func (h *Handler) SetActive(gctx *gin.Context) {
	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	b, err := h.service.SetActive(gctx.Request.Context(), middleware.Owner(gctx), owner, *req.Active)
	h.respond(gctx, http.StatusOK, b, err)
}
