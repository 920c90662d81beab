package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/pkg/config"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

var (
	errShopIDRequired = errors.New("yookassa shop id is required")
	errSecretRequired = errors.New("yookassa secret key is required")
	errLoggerRequired = errors.New("yookassa logger is required")
)

// Client exposes YooKassa payment primitives with centralized auth, logging,
// idempotency, and error mapping. YooKassa ships no Go SDK; the client speaks
// the v3 REST API directly.
type Client struct {
	httpClient *http.Client
	shopID     string
	secretKey  string
	baseURL    string
	currency   string
	logger     *logger.Logger
}

// Option overrides client internals, primarily for tests.
type Option func(*Client)

// WithBaseURL points the client at a non-default API host.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient initializes the YooKassa wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.YooKassaConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	shopID := strings.TrimSpace(cfg.ShopID)
	if shopID == "" {
		return nil, errShopIDRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		shopID:     shopID,
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		currency:   cfg.Currency,
		logger:     logg,
	}
	for _, opt := range opts {
		opt(c)
	}

	logg.Info(ctx, "yookassa client initialized")
	return c, nil
}

// Currency reports the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil || c.currency == "" {
		return "RUB"
	}
	return c.currency
}

// NewIdempotencyKey returns a unique key for YooKassa operations.
func (c *Client) NewIdempotencyKey() string {
	return uuid.NewString()
}

// CreatePayment submits a hosted-redirect payment and returns the provider's
// payment object. Each call must carry a fresh idempotency key.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*Payment, error) {
	key := strings.TrimSpace(params.IdempotencyKey)
	if key == "" {
		key = c.NewIdempotencyKey()
	}

	c.log(ctx, "request", "create_payment", map[string]any{
		"amount":   params.Amount.Value,
		"currency": params.Amount.Currency,
		"order_id": params.Metadata["order_id"],
	})

	body, err := json.Marshal(params.toRequest())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "yookassa create payment failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read yookassa response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.decodeAPIError(raw, resp.StatusCode)
		c.log(ctx, "error", "create_payment", map[string]any{"error": apiErr.Error(), "http_status": resp.StatusCode})
		return nil, apiErr
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode yookassa payment")
	}
	if payment.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "yookassa payment missing id")
	}

	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// GetPayment fetches the current provider state for a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "yookassa get payment failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read yookassa response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeAPIError(raw, resp.StatusCode)
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode yookassa payment")
	}
	return &payment, nil
}

func (c *Client) decodeAPIError(raw []byte, status int) error {
	var payload apiError
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Code != "" {
		return pkgerrors.Wrap(
			domainCodeForStatus(status),
			fmt.Errorf("yookassa %s: %s", payload.Code, payload.Description),
			"yookassa rejected payment",
		)
	}
	return pkgerrors.Wrap(
		domainCodeForStatus(status),
		fmt.Errorf("yookassa returned http %d", status),
		"yookassa rejected payment",
	)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("yookassa %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("yookassa %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "email", "phone", "card"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeDependency
	}
}

type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter"`
}
