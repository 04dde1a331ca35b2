package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/provider/paypal"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrSessionNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrSessionTerminal, http.StatusConflict, "session_terminal"},
	{domainErrors.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable"},
	{domainErrors.ErrWebhookVerification, http.StatusBadRequest, "webhook_verification_failed"},
}

// rejectionCodes are normalized provider codes caused by the request
// itself rather than by the provider being broken.
var rejectionCodes = map[string]bool{
	"unsupported_currency": true,
	"amount_too_long":      true,
	"uncaptured_refund":    true,
	"invalid_data_update":  true,
	"no_purchase_units":    true,
	"no_authorization":     true,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	// Provider-normalized errors keep their own message, code, and detail.
	var normErr *paypal.NormalizedError
	if errors.As(err, &normErr) {
		resp = ErrorResponse{Error: normErr.Message, Code: normErr.Code, Detail: normErr.Detail}
		status := http.StatusBadGateway
		if rejectionCodes[normErr.Code] {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
		return
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
