package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/checkout"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/session"
)

// notification is the transient message the visual layer shows for a
// failed action. Redirect is set when the user has to log in again.
type notification struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// respondError maps err onto a status and a notification. op names the
// action for the log line.
func respondError(c echo.Context, err error, op string) error {
	status, body := notify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("storefront: %s: %v", op, err)
	}
	return c.JSON(status, body)
}

func notify(err error) (int, notification) {
	var (
		ve     *errs.ValidationError
		ae     *errs.AuthError
		ne     *errs.NetworkError
		apiErr *apiclient.APIError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, notification{Error: "Validation error", Message: ve.Message, Field: ve.Field}
	case errors.As(err, &ae):
		status := ae.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadRequest
		}
		return status, notification{Error: "Authentication failed", Message: ae.Message}
	case errors.Is(err, apiclient.ErrUnauthorized), errors.Is(err, checkout.ErrLoginRequired), errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, notification{Error: "Login required", Message: "Please log in to continue.", Redirect: session.LoginPath}
	case errors.Is(err, apiclient.ErrNotFound):
		return http.StatusNotFound, notification{Error: "Not found", Message: "The requested item could not be found."}
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, notification{Error: "Cart is empty", Message: "Add some products before checking out."}
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		return http.StatusConflict, notification{Error: "Please wait", Message: "Your order is already being placed."}
	case errors.Is(err, checkout.ErrPaymentsDisabled):
		return http.StatusNotImplemented, notification{Error: "Unavailable", Message: "Online payment is not available in demo mode."}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, notification{Error: "Timeout", Message: "The server took too long to respond. Please try again."}
	case errors.As(err, &ne):
		return http.StatusServiceUnavailable, notification{Error: "Network error", Message: "Could not reach the server. Please try again."}
	case errors.As(err, &apiErr):
		if apiErr.Status < http.StatusInternalServerError {
			return apiErr.Status, notification{Error: "Request failed", Message: apiErr.Message()}
		}
		return http.StatusBadGateway, notification{Error: "Server error", Message: "The server could not complete the request."}
	default:
		return http.StatusInternalServerError, notification{Error: "Error", Message: "Something went wrong. Please try again."}
	}
}
