package paypal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUncapturedRefund  = errors.New("cannot refund a payment that has no capture")
	ErrInvalidDataUpdate = errors.New("amount cannot be updated through the data update path")
	ErrNoPurchaseUnits   = errors.New("order has no purchase units")
	ErrNoAuthorization   = errors.New("order has no authorization to act on")
)

// detailSeparator joins nested error details so causality stays readable
// in a single string field.
const detailSeparator = "\n"

// NormalizedError is the single error shape every failing lifecycle
// operation returns, whatever the failure origin.
type NormalizedError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
}

func (e *NormalizedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// APIError is the provider-shaped error body the PayPal REST API returns.
type APIError struct {
	StatusCode int               `json:"-"`
	Name       string            `json:"name"`
	Message    string            `json:"message"`
	DebugID    string            `json:"debug_id,omitempty"`
	Details    []APIErrorDetail  `json:"details,omitempty"`
	Links      []Link            `json:"links,omitempty"`
}

// APIErrorDetail is one entry of an APIError detail chain.
type APIErrorDetail struct {
	Field       string `json:"field,omitempty"`
	Issue       string `json:"issue,omitempty"`
	Description string `json:"description,omitempty"`
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal api error %s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("paypal api error (status %d): %s", e.StatusCode, e.Message)
}

// DetailString flattens the detail chain into one line per entry.
func (e *APIError) DetailString() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		switch {
		case d.Issue != "" && d.Description != "":
			parts = append(parts, d.Issue+": "+d.Description)
		case d.Description != "":
			parts = append(parts, d.Description)
		default:
			parts = append(parts, d.Issue)
		}
	}
	return strings.Join(parts, detailSeparator)
}

// sentinelCodes maps local domain-rule sentinels onto stable error codes.
var sentinelCodes = []struct {
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

// buildError converts any failure into the NormalizedError shape. Errors
// that already carry provider semantics keep their code, and their own
// message/detail are nested underneath the separator so the chain of
// causes survives textually. The code defaults to "unknown".
func buildError(message string, err error) *NormalizedError {
	out := &NormalizedError{Message: message, Code: "unknown"}
	if err == nil {
		return out
	}

	var norm *NormalizedError
	var api *APIError
	switch {
	case errors.As(err, &norm):
		if norm.Code != "" {
			out.Code = norm.Code
		}
		if norm.Detail != "" {
			out.Detail = norm.Message + detailSeparator + norm.Detail
		} else {
			out.Detail = norm.Message
		}
	case errors.As(err, &api):
		if api.Name != "" {
			out.Code = api.Name
		}
		if ds := api.DetailString(); ds != "" {
			out.Detail = api.Message + detailSeparator + ds
		} else {
			out.Detail = api.Message
		}
	default:
		out.Detail = err.Error()
		for _, m := range sentinelCodes {
			if errors.Is(err, m.err) {
				out.Code = m.code
				break
			}
		}
	}
	return out
}
