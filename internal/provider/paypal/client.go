package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the remote capability set the session adapter consumes. All
// calls are synchronous and may fail with an *APIError carrying the
// provider's error body, or a plain transport error.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	PatchOrder(ctx context.Context, orderID string, ops []PatchOp) error
	CaptureAuthorizedPayment(ctx context.Context, authorizationID string) (*Capture, error)
	CancelAuthorizedPayment(ctx context.Context, authorizationID string) error
	RefundPayment(ctx context.Context, captureID string, req *RefundRequest) (*Refund, error)
	GetAuthorizationPayment(ctx context.Context, authorizationID string) (*Authorization, error)
	VerifyWebhookSignature(ctx context.Context, req VerifyWebhookRequest) (bool, error)
}

const (
	liveAPIBase    = "https://api-m.paypal.com"
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"

	// tokenExpirySlack refreshes the OAuth token slightly before PayPal
	// would reject it.
	tokenExpirySlack = 30 * time.Second
)

// RESTClient implements Client against the PayPal REST API. OAuth tokens
// are fetched with the client-credentials grant and cached until close to
// expiry. All calls go through a circuit breaker; business rejections
// (4xx) do not trip it.
type RESTClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
	logger       zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewRESTClient creates a RESTClient for the environment selected by
// cfg.Sandbox.
func NewRESTClient(cfg Config, logger zerolog.Logger) *RESTClient {
	base := liveAPIBase
	if cfg.Sandbox {
		base = sandboxAPIBase
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "paypal",
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var api *APIError
			// 4xx means PayPal answered; only transport and 5xx failures
			// should open the breaker.
			return errors.As(err, &api) && api.StatusCode < 500
		},
	})

	return &RESTClient{
		baseURL:      base,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		breaker: breaker,
		logger:  logger,
	}
}

// CreateOrder implements Client.
func (c *RESTClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder implements Client.
func (c *RESTClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PatchOrder implements Client. A successful patch returns no body.
func (c *RESTClient) PatchOrder(ctx context.Context, orderID string, ops []PatchOp) error {
	return c.do(ctx, http.MethodPatch, "/v2/checkout/orders/"+url.PathEscape(orderID), ops, nil)
}

// CaptureAuthorizedPayment implements Client.
func (c *RESTClient) CaptureAuthorizedPayment(ctx context.Context, authorizationID string) (*Capture, error) {
	var capture Capture
	path := "/v2/payments/authorizations/" + url.PathEscape(authorizationID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &capture); err != nil {
		return nil, err
	}
	return &capture, nil
}

// CancelAuthorizedPayment implements Client. PayPal answers 204 on a
// successful void.
func (c *RESTClient) CancelAuthorizedPayment(ctx context.Context, authorizationID string) error {
	path := "/v2/payments/authorizations/" + url.PathEscape(authorizationID) + "/void"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// RefundPayment implements Client. A nil req issues a full refund.
func (c *RESTClient) RefundPayment(ctx context.Context, captureID string, req *RefundRequest) (*Refund, error) {
	var body any = struct{}{}
	if req != nil {
		body = req
	}
	var refund Refund
	path := "/v2/payments/captures/" + url.PathEscape(captureID) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetAuthorizationPayment implements Client.
func (c *RESTClient) GetAuthorizationPayment(ctx context.Context, authorizationID string) (*Authorization, error) {
	var auth Authorization
	path := "/v2/payments/authorizations/" + url.PathEscape(authorizationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// VerifyWebhookSignature implements Client.
func (c *RESTClient) VerifyWebhookSignature(ctx context.Context, req VerifyWebhookRequest) (bool, error) {
	var resp struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &resp); err != nil {
		return false, err
	}
	return resp.VerificationStatus == "SUCCESS", nil
}

// do performs one authenticated JSON call and decodes the response into
// out when non-nil.
func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("paypal request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, decodeAPIError(resp.StatusCode, data)
		}
		return data, nil
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("paypal call failed")
		return err
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// token returns a cached OAuth access token, fetching a fresh one when
// the cached token is absent or about to expire.
func (c *RESTClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", decodeAPIError(resp.StatusCode, data)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// decodeAPIError turns an error response body into an *APIError, falling
// back to the raw body when PayPal returns something unparseable.
func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, apiErr); err != nil || (apiErr.Name == "" && apiErr.Message == "") {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}
