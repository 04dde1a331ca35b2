package paypal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildError_PlainError(t *testing.T) {
	err := buildError("operation failed", errors.New("connection reset"))

	assert.Equal(t, "operation failed", err.Message)
	assert.Equal(t, "unknown", err.Code)
	assert.Equal(t, "connection reset", err.Detail)
}

func TestBuildError_NilCause(t *testing.T) {
	err := buildError("operation failed", nil)

	assert.Equal(t, "unknown", err.Code)
	assert.Empty(t, err.Detail)
}

func TestBuildError_APIError(t *testing.T) {
	cause := &APIError{
		StatusCode: 422,
		Name:       "UNPROCESSABLE_ENTITY",
		Message:    "The requested action could not be performed.",
		Details: []APIErrorDetail{
			{Issue: "AUTHORIZATION_VOIDED", Description: "Authorization has been voided."},
		},
	}
	err := buildError("failed to capture payment", cause)

	assert.Equal(t, "UNPROCESSABLE_ENTITY", err.Code)
	assert.Contains(t, err.Detail, "The requested action could not be performed.")
	assert.Contains(t, err.Detail, "AUTHORIZATION_VOIDED: Authorization has been voided.")
	// The causal chain is joined with the line separator.
	assert.Contains(t, err.Detail, detailSeparator)
}

func TestBuildError_NestsNormalizedErrors(t *testing.T) {
	inner := buildError("failed to get payment status", errors.New("timeout"))
	outer := buildError("failed to authorize payment", inner)

	assert.Equal(t, "failed to authorize payment", outer.Message)
	assert.Equal(t, inner.Code, outer.Code)
	assert.Equal(t, "failed to get payment status"+detailSeparator+"timeout", outer.Detail)
}

func TestBuildError_SentinelCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrUnsupportedCurrency, "unsupported_currency"},
		{ErrAmountTooLong, "amount_too_long"},
		{ErrUncapturedRefund, "uncaptured_refund"},
		{ErrInvalidDataUpdate, "invalid_data_update"},
		{ErrNoPurchaseUnits, "no_purchase_units"},
		{ErrNoAuthorization, "no_authorization"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			// Wrapping must not hide the sentinel.
			err := buildError("failed", fmt.Errorf("context: %w", tt.err))
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestAPIError_DetailString(t *testing.T) {
	e := &APIError{Details: []APIErrorDetail{
		{Issue: "ISSUE_ONE", Description: "first"},
		{Description: "second only"},
		{Issue: "ISSUE_THREE"},
	}}
	assert.Equal(t, "ISSUE_ONE: first"+detailSeparator+"second only"+detailSeparator+"ISSUE_THREE", e.DetailString())
}

func TestNormalizedError_Error(t *testing.T) {
	e := &NormalizedError{Message: "boom", Code: "bad_thing", Detail: "why it went bad"}
	assert.Contains(t, e.Error(), "boom")
	assert.Contains(t, e.Error(), "bad_thing")
	assert.Contains(t, e.Error(), "why it went bad")
}
