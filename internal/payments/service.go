package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/metrics"
)

// CheckoutResult is what the storefront needs to continue the purchase.
type CheckoutResult struct {
	OrderID    uuid.UUID
	PaymentURL string
}

// Service runs the checkout flow: open the ledger entry, then hand the buyer
// to the payment provider.
type Service interface {
	Checkout(ctx context.Context, input orders.CreateOrderInput) (*CheckoutResult, error)
}

type service struct {
	orders  orders.Service
	catalog catalog.Service
	gateway Gateway
	logger  *logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewService builds the checkout service.
func NewService(ordersSvc orders.Service, catalogSvc catalog.Service, gateway Gateway, logg *logger.Logger, m *metrics.PipelineMetrics) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:  ordersSvc,
		catalog: catalogSvc,
		gateway: gateway,
		logger:  logg,
		metrics: m,
	}, nil
}

// Checkout creates the pending order first, then initiates payment. A gateway
// failure leaves the pending order in place; the buyer can retry checkout and
// the abandoned row simply never transitions.
func (s *service) Checkout(ctx context.Context, input orders.CreateOrderInput) (*CheckoutResult, error) {
	order, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		s.metrics.IncCheckout("rejected")
		return nil, err
	}
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	lines := s.receiptLines(ctx, order)

	paymentID, redirectURL, err := s.gateway.InitiatePayment(ctx, order, lines)
	if err != nil {
		s.metrics.IncCheckout("gateway_failed")
		s.logger.Error(ctx, "payment initiation failed", err)
		return nil, err
	}

	if err := s.orders.SetProviderPaymentID(ctx, order.ID, paymentID); err != nil {
		s.metrics.IncCheckout("gateway_failed")
		return nil, err
	}

	s.metrics.IncCheckout("initiated")
	s.logger.Info(ctx, "checkout initiated")
	return &CheckoutResult{OrderID: order.ID, PaymentURL: redirectURL}, nil
}

// receiptLines resolves item titles for the fiscal receipt. Items whose
// catalog entity vanished mid-checkout fall back to a generic label rather
// than failing the payment.
func (s *service) receiptLines(ctx context.Context, order *models.Order) []ReceiptLine {
	lines := make([]ReceiptLine, 0, len(order.Items))
	for _, item := range order.Items {
		kind, id, ok := item.Ref()
		line := ReceiptLine{Title: "Digital item", Price: item.Price.StringFixed(2)}
		if ok {
			if product, err := s.catalog.ResolveProduct(ctx, kind, id); err == nil {
				line.Title = product.Title()
			}
		}
		lines = append(lines, line)
	}
	return lines
}
