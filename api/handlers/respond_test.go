package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid argument", errs.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"insufficient balance", errs.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
		{"unauthorized", errs.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{"not found", errs.ErrNotFound, http.StatusNotFound, "not_found"},
		{"already exists", errs.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{"wrapped", fmt.Errorf("sell of 3 exceeds supply 1: %w", errs.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("statusFor(%v) = (%d, %q), want (%d, %q)", tt.err, status, code, tt.status, tt.code)
			}
		})
	}
}
