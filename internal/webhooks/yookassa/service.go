package yookassawebhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/internal/notifications"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/internal/tokens"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/metrics"
	"github.com/proffmusic/proffmusic-backend/pkg/yookassa"
)

// GuardScope namespaces the redis idempotency markers for this provider.
const GuardScope = "yookassa-webhook"

// Service turns provider payment notifications into ledger transitions and
// minted download tokens.
type Service interface {
	// ProcessNotification handles one webhook delivery. A returned error
	// with CodeValidation means the body was not a parseable notification;
	// any other outcome has been absorbed so the provider is not retried
	// needlessly.
	ProcessNotification(ctx context.Context, body []byte) error
}

type service struct {
	orders        orders.Service
	tokens        tokens.Service
	notifications notifications.Service
	guard         *IdempotencyGuard
	logger        *logger.Logger
	metrics       *metrics.PipelineMetrics
}

// NewService wires the webhook processor.
func NewService(
	ordersSvc orders.Service,
	tokensSvc tokens.Service,
	notificationsSvc notifications.Service,
	guard *IdempotencyGuard,
	logg *logger.Logger,
	m *metrics.PipelineMetrics,
) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if tokensSvc == nil {
		return nil, fmt.Errorf("tokens service required")
	}
	if notificationsSvc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:        ordersSvc,
		tokens:        tokensSvc,
		notifications: notificationsSvc,
		guard:         guard,
		logger:        logg,
		metrics:       m,
	}, nil
}

func (s *service) ProcessNotification(ctx context.Context, body []byte) error {
	notification, err := yookassa.ParseNotification(body)
	if err != nil {
		s.metrics.IncWebhookEvent("malformed")
		return err
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"event":      notification.Event,
		"payment_id": notification.Object.ID,
	})

	if notification.Event != yookassa.EventPaymentSucceeded {
		s.metrics.IncWebhookEvent("ignored")
		s.logger.Info(ctx, "webhook event ignored")
		return nil
	}

	orderID, err := uuid.Parse(notification.OrderID())
	if err != nil {
		s.metrics.IncWebhookEvent("ignored")
		s.logger.Warn(ctx, "payment notification without usable order metadata")
		return nil
	}
	ctx = s.logger.WithOrderID(ctx, orderID.String())

	eventID := notification.Event + ":" + notification.Object.ID
	if s.guard != nil {
		duplicate, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			// Redis being down must not drop payments; the DB-side
			// guarded transition still dedupes.
			s.logger.Warn(ctx, "webhook idempotency check unavailable, relying on ledger guard")
		} else if duplicate {
			s.metrics.IncWebhookEvent("duplicate")
			s.logger.Info(ctx, "webhook delivery already processed")
			return nil
		}
	}

	order, transitioned, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		s.releaseGuard(ctx, eventID)
		if domainErr := pkgerrors.As(err); domainErr != nil {
			switch domainErr.Code() {
			case pkgerrors.CodeNotFound:
				// The provider references an order this ledger never
				// opened. Ack and alert rather than retry forever.
				s.metrics.IncWebhookEvent("ignored")
				s.logger.Error(ctx, "payment confirmed for unknown order", err)
				return nil
			case pkgerrors.CodeStateConflict:
				s.metrics.IncWebhookEvent("ignored")
				s.logger.Error(ctx, "payment confirmed for non-pending order", err)
				return nil
			}
		}
		s.metrics.IncWebhookEvent("failed")
		return err
	}

	token, err := s.tokens.IssueFor(ctx, orderID)
	if err != nil {
		s.releaseGuard(ctx, eventID)
		s.metrics.IncWebhookEvent("failed")
		return err
	}

	if !transitioned {
		s.metrics.IncWebhookEvent("duplicate")
		s.logger.Info(ctx, "payment confirmation re-delivered, order already paid")
		return nil
	}

	// Email failure never unwinds the paid transition; the buyer can still
	// reach the download through the storefront.
	if err := s.notifications.SendFulfillment(ctx, order, token); err != nil {
		s.logger.Warn(ctx, "fulfillment email failed after payment")
	}

	s.metrics.IncWebhookEvent("processed")
	s.logger.Info(ctx, "payment confirmed, download token minted")
	return nil
}

func (s *service) releaseGuard(ctx context.Context, eventID string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, eventID); err != nil {
		s.logger.Warn(ctx, "failed to clear webhook idempotency marker")
	}
}
