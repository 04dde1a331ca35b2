package controller

import (
	"io"
	"net/http"

	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/commercegate/paypal-sessions/internal/service"
)

// maxWebhookBody bounds inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookController receives provider webhook deliveries.
type WebhookController struct {
	sessionService *service.SessionService
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(sessionService *service.SessionService) *WebhookController {
	return &WebhookController{sessionService: sessionService}
}

// HandlePayPal handles POST /webhooks/paypal. The signature transmission
// fields arrive as headers; the event itself is the body.
func (h *WebhookController) HandlePayPal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read body", Code: "invalid_body"})
		return
	}

	req := provider.WebhookVerifyRequest{
		AuthAlgo:         r.Header.Get("Paypal-Auth-Algo"),
		CertURL:          r.Header.Get("Paypal-Cert-Url"),
		TransmissionID:   r.Header.Get("Paypal-Transmission-Id"),
		TransmissionSig:  r.Header.Get("Paypal-Transmission-Sig"),
		TransmissionTime: r.Header.Get("Paypal-Transmission-Time"),
		Event:            body,
	}

	res, err := h.sessionService.HandleWebhook(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := WebhookResponse{Status: "queued", Action: string(res.Action)}
	if res.Action == provider.WebhookActionNotSupported {
		resp.Status = "ignored"
	}
	writeJSON(w, http.StatusOK, resp)
}
