package payments

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

type stubOrders struct {
	orders.Service
	createOrderFn    func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	setPaymentIDFn   func(ctx context.Context, id uuid.UUID, paymentID string) error
	recordedPayments map[uuid.UUID]string
}

func (s *stubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return s.createOrderFn(ctx, input)
}

func (s *stubOrders) SetProviderPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	if s.setPaymentIDFn != nil {
		return s.setPaymentIDFn(ctx, id, paymentID)
	}
	if s.recordedPayments == nil {
		s.recordedPayments = map[uuid.UUID]string{}
	}
	s.recordedPayments[id] = paymentID
	return nil
}

type stubCatalog struct {
	catalog.Service
}

func (s *stubCatalog) ResolveProduct(_ context.Context, kind enums.ProductKind, id uuid.UUID) (*catalog.Product, error) {
	return &catalog.Product{
		Kind:  enums.ProductKindTrack,
		Track: &models.Track{ID: id, Title: "Night Drive", Price: decimal.NewFromInt(150)},
	}, nil
}

type stubGateway struct {
	initiateFn func(ctx context.Context, order *models.Order, lines []ReceiptLine) (string, string, error)
	gotLines   []ReceiptLine
}

func (s *stubGateway) InitiatePayment(ctx context.Context, order *models.Order, lines []ReceiptLine) (string, string, error) {
	s.gotLines = lines
	return s.initiateFn(ctx, order, lines)
}

func testPaymentsLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "payments-test",
		Level:       zerolog.Disabled,
		Output:      &bytes.Buffer{},
	})
}

func pendingOrder() *models.Order {
	trackID := uuid.New()
	return &models.Order{
		ID:     uuid.New(),
		Email:  "buyer@example.com",
		Status: enums.OrderStatusPending,
		Amount: decimal.NewFromInt(150),
		Items: []models.OrderItem{
			{ID: uuid.New(), TrackID: &trackID, Price: decimal.NewFromInt(150)},
		},
	}
}

func TestCheckout_Success(t *testing.T) {
	order := pendingOrder()
	ordersSvc := &stubOrders{
		createOrderFn: func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			return order, nil
		},
	}
	gateway := &stubGateway{
		initiateFn: func(ctx context.Context, o *models.Order, lines []ReceiptLine) (string, string, error) {
			return "pay-123", "https://provider.test/checkout/pay-123", nil
		},
	}

	svc, err := NewService(ordersSvc, &stubCatalog{}, gateway, testPaymentsLogger(), nil)
	require.NoError(t, err)

	result, err := svc.Checkout(context.Background(), orders.CreateOrderInput{
		Email: "buyer@example.com",
		Items: []orders.CheckoutItem{{Kind: enums.ProductKindTrack, ID: uuid.New()}},
	})
	require.NoError(t, err)

	assert.Equal(t, order.ID, result.OrderID)
	assert.Equal(t, "https://provider.test/checkout/pay-123", result.PaymentURL)
	assert.Equal(t, "pay-123", ordersSvc.recordedPayments[order.ID])
	require.Len(t, gateway.gotLines, 1)
	assert.Equal(t, "Night Drive", gateway.gotLines[0].Title)
	assert.Equal(t, "150.00", gateway.gotLines[0].Price)
}

func TestCheckout_OrderCreationFails(t *testing.T) {
	ordersSvc := &stubOrders{
		createOrderFn: func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		},
	}
	gateway := &stubGateway{
		initiateFn: func(ctx context.Context, o *models.Order, lines []ReceiptLine) (string, string, error) {
			t.Fatal("gateway must not be called when order creation fails")
			return "", "", nil
		},
	}

	svc, err := NewService(ordersSvc, &stubCatalog{}, gateway, testPaymentsLogger(), nil)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), orders.CreateOrderInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCheckout_GatewayFailureLeavesOrderPending(t *testing.T) {
	order := pendingOrder()
	ordersSvc := &stubOrders{
		createOrderFn: func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			return order, nil
		},
		setPaymentIDFn: func(ctx context.Context, id uuid.UUID, paymentID string) error {
			t.Fatal("payment id must not be stored when the gateway fails")
			return nil
		},
	}
	gateway := &stubGateway{
		initiateFn: func(ctx context.Context, o *models.Order, lines []ReceiptLine) (string, string, error) {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "yookassa create payment failed")
		},
	}

	svc, err := NewService(ordersSvc, &stubCatalog{}, gateway, testPaymentsLogger(), nil)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), orders.CreateOrderInput{
		Email: "buyer@example.com",
		Items: []orders.CheckoutItem{{Kind: enums.ProductKindTrack, ID: uuid.New()}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestMockGateway_EncodesOrderInRedirect(t *testing.T) {
	order := pendingOrder()
	gateway := NewMockGateway("http://localhost:3000/success")

	paymentID, redirect, err := gateway.InitiatePayment(context.Background(), order, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock-"+order.ShortID(), paymentID)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "1", parsed.Query().Get("mock"))
	assert.Equal(t, order.ID.String(), parsed.Query().Get("order_id"))
	assert.Equal(t, "150.00", parsed.Query().Get("amount"))
}
