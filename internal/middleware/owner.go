package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/web"
)

const (
	// OwnerHeader carries the owner the upstream gateway has authenticated.
	OwnerHeader = "X-Owner-ID"
	// OwnerKey is the gin context key of the authenticated owner.
	OwnerKey = "authenticated_owner"
)

// ErrOwnerHeaderNotFound is returned when the request carries no owner.
var ErrOwnerHeaderNotFound = errors.New(OwnerHeader + " header is not provided")

// OwnerMiddleware stores the authenticated owner in the gin context.
func OwnerMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		owner := gctx.GetHeader(OwnerHeader)
		if owner == "" {
			zerolog.Ctx(gctx.Request.Context()).Info().Err(ErrOwnerHeaderNotFound).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrOwnerHeaderNotFound))

			return
		}

		gctx.Set(OwnerKey, owner)
		gctx.Next()
	}
}

// Owner returns the authenticated owner set by OwnerMiddleware.
func Owner(gctx *gin.Context) string {
	return gctx.GetString(OwnerKey)
}

// AddOwner sets the authenticated owner header on r.
func AddOwner(r *http.Request, owner string) {
	r.Header.Set(OwnerHeader, owner)
}
