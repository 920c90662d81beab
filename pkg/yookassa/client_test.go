package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proffmusic/proffmusic-backend/pkg/config"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "yookassa-test",
		Level:       zerolog.Disabled,
		Output:      &bytes.Buffer{},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), config.YooKassaConfig{
		ShopID:    "shop-123",
		SecretKey: "sk-test",
		Currency:  "RUB",
	}, testLogger(), WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.YooKassaConfig{SecretKey: "x"}, testLogger())
	require.ErrorIs(t, err, errShopIDRequired)

	_, err = NewClient(context.Background(), config.YooKassaConfig{ShopID: "x"}, testLogger())
	require.ErrorIs(t, err, errSecretRequired)
}

func TestCreatePayment_Success(t *testing.T) {
	var captured createPaymentRequest
	var gotIdemKey string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop-123", user)
		assert.Equal(t, "sk-test", pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)

		gotIdemKey = r.Header.Get("Idempotence-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Payment{
			ID:     "pay-001",
			Status: "pending",
			Confirmation: &Confirmation{
				Type:            "redirect",
				ConfirmationURL: "https://yookassa.test/checkout/pay-001",
			},
		})
	})

	amount := NewAmount(decimal.NewFromFloat(150), "RUB")
	payment, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount:        amount,
		Description:   "Order abc12345",
		ReturnURL:     "https://proffmusic.test/thanks",
		CustomerEmail: "buyer@example.com",
		Metadata:      map[string]string{"order_id": "abc"},
		Items: []ReceiptItem{
			{Description: "Night Drive", Amount: NewAmount(decimal.NewFromFloat(150), "RUB")},
		},
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay-001", payment.ID)
	assert.Equal(t, "https://yookassa.test/checkout/pay-001", payment.ConfirmationURL())
	assert.Equal(t, "idem-1", gotIdemKey)

	assert.True(t, captured.Capture)
	assert.Equal(t, "150.00", captured.Amount.Value)
	assert.Equal(t, "redirect", captured.Confirmation.Type)
	assert.Equal(t, "abc", captured.Metadata["order_id"])
	require.NotNil(t, captured.Receipt)
	require.Len(t, captured.Receipt.Items, 1)
	assert.Equal(t, "1.00", captured.Receipt.Items[0].Quantity)
	assert.Equal(t, 1, captured.Receipt.Items[0].VatCode)
}

func TestCreatePayment_GeneratesIdempotencyKey(t *testing.T) {
	var gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotence-Key")
		_ = json.NewEncoder(w).Encode(Payment{ID: "pay-002", Status: "pending"})
	})

	_, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount: NewAmount(decimal.NewFromInt(99), "RUB"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, gotKey)
}

func TestCreatePayment_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","code":"invalid_request","description":"amount too small"}`))
	})

	_, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount: NewAmount(decimal.NewFromInt(1), "RUB"),
	})
	require.Error(t, err)

	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())
	assert.Contains(t, domainErr.Unwrap().Error(), "invalid_request")
}

func TestCreatePayment_TransportError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.CreatePayment(context.Background(), PaymentCreateParams{
		Amount: NewAmount(decimal.NewFromInt(10), "RUB"),
	})
	require.Error(t, err)

	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())
}

func TestGetPayment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay-007", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Payment{ID: "pay-007", Status: "succeeded", Paid: true})
	})

	payment, err := client.GetPayment(context.Background(), "pay-007")
	require.NoError(t, err)
	assert.True(t, payment.Paid)
	assert.Equal(t, "succeeded", payment.Status)
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("я", 200)
	got := truncateDescription(long)
	assert.Equal(t, 128, len([]rune(got)))
	assert.Equal(t, "short", truncateDescription("short"))
}

func TestParseNotification(t *testing.T) {
	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay-1","status":"succeeded","metadata":{"order_id":"ord-9"}}}`)
	n, err := ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, n.Event)
	assert.Equal(t, "ord-9", n.OrderID())

	_, err = ParseNotification([]byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	n, err = ParseNotification([]byte(`{"type":"notification"}`))
	require.NoError(t, err)
	assert.Empty(t, n.Event)
}
