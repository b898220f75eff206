package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps engine failures to HTTP statuses. Terminal rejections keep
// their taxonomy; anything else is a server fault.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, errs.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("handlers: internal error", "path", r.URL.Path, "error", err)
		sentry.CaptureException(err)
		msg = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: msg}); err != nil {
		h.log.Error("handlers: failed to encode error response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("handlers: failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", errs.ErrInvalidArgument)
	}
	return nil
}

// pathAddress parses a base58 address out of a chi route parameter.
func pathAddress(r *http.Request, param string) (addr.Address, error) {
	a, err := addr.Parse(chi.URLParam(r, param))
	if err != nil {
		return "", fmt.Errorf("path parameter %q: %s: %w", param, err, errs.ErrInvalidArgument)
	}
	return a, nil
}

// parseAddress parses a required address field from a request body.
func parseAddress(field, s string) (addr.Address, error) {
	a, err := addr.Parse(s)
	if err != nil {
		return "", fmt.Errorf("field %q: %s: %w", field, err, errs.ErrInvalidArgument)
	}
	return a, nil
}

// optionalAddress parses an address field that may be empty, such as a
// referrer.
func optionalAddress(field, s string) (addr.Address, error) {
	if s == "" {
		return "", nil
	}
	return parseAddress(field, s)
}
