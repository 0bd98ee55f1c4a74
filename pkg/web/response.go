// Package web defines common components for the ledger http adapter.
package web

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// BindError turns a request binding failure into a response naming the offending field.
func BindError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Error(err)
}

// GetErrorMsg returns a human readable suffix for a failed validation rule.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "amount":
		return " must be a positive decimal below 1e16 with at most 4 decimal places"
	}

	return " is invalid"
}

var statuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInsufficientFunds, http.StatusBadRequest},
	{domain.ErrSelfTransfer, http.StatusBadRequest},
	{domain.ErrInvalidPagination, http.StatusBadRequest},
	{domain.ErrAccountInactive, http.StatusForbidden},
	{domain.ErrInvalidOwner, http.StatusForbidden},
	{domain.ErrReactivationForbidden, http.StatusForbidden},
	{domain.ErrBalanceNotFound, http.StatusNotFound},
	{domain.ErrRecipientNotFound, http.StatusNotFound},
	{domain.ErrTransactionNotFound, http.StatusNotFound},
	{domain.ErrBalanceExists, http.StatusConflict},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrDuplicateReference, http.StatusConflict},
}

// ErrorStatus maps a service error to its HTTP status and response.
// Unknown errors are reported as errorspkg.ErrInternal.
func ErrorStatus(err error) (int, Response) {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status, Error(err)
		}
	}

	return http.StatusInternalServerError, Error(errorspkg.ErrInternal)
}
