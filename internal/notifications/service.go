package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

// Service sends buyer-facing fulfillment email.
type Service interface {
	SendFulfillment(ctx context.Context, order *models.Order, token *models.DownloadToken) error
}

type service struct {
	mailer  Mailer
	siteURL string
	logger  *logger.Logger
}

// NewService wires the fulfillment mail sender.
func NewService(mailer Mailer, siteURL string, logg *logger.Logger) (Service, error) {
	if mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mailer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		mailer:  mailer,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logg,
	}, nil
}

// SendFulfillment emails the buyer their download link after payment
// confirmation. Failures are reported to the caller but must never undo the
// paid transition.
func (s *service) SendFulfillment(ctx context.Context, order *models.Order, token *models.DownloadToken) error {
	if order == nil || token == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order and token required")
	}

	link := fmt.Sprintf("%s/download/%s", s.siteURL, token.Token)
	subject := fmt.Sprintf("Your order %s is ready", order.ShortID())
	body := strings.Join([]string{
		"Thank you for your purchase!",
		"",
		fmt.Sprintf("Your music is ready to download: %s", link),
		"",
		fmt.Sprintf("The link works %d times and expires on %s.",
			token.MaxUsages, token.ExpiresAt.Format("02 Jan 2006 15:04 MST")),
	}, "\r\n")

	if err := s.mailer.Send(ctx, order.Email, subject, body); err != nil {
		s.logger.Error(s.logger.WithOrderID(ctx, order.ID.String()), "fulfillment email failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send fulfillment email")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "fulfillment email sent")
	return nil
}
