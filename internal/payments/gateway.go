package payments

import (
	"context"
	"fmt"
	"net/url"

	"github.com/proffmusic/proffmusic-backend/pkg/config"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/yookassa"
)

// ReceiptLine is one fiscal-receipt entry for the provider.
type ReceiptLine struct {
	Title string
	Price string
}

// Gateway abstracts the hosted-payment provider. The mock implementation
// keeps local development and CI working without provider credentials.
type Gateway interface {
	InitiatePayment(ctx context.Context, order *models.Order, lines []ReceiptLine) (paymentID, redirectURL string, err error)
}

type yookassaGateway struct {
	client *yookassa.Client
	cfg    config.YooKassaConfig
}

// NewYooKassaGateway wraps the provider client as a Gateway.
func NewYooKassaGateway(client *yookassa.Client, cfg config.YooKassaConfig) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("yookassa client required")
	}
	return &yookassaGateway{client: client, cfg: cfg}, nil
}

func (g *yookassaGateway) InitiatePayment(ctx context.Context, order *models.Order, lines []ReceiptLine) (string, string, error) {
	items := make([]yookassa.ReceiptItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, yookassa.ReceiptItem{
			Description: line.Title,
			Amount:      yookassa.Amount{Value: line.Price, Currency: g.client.Currency()},
		})
	}

	payment, err := g.client.CreatePayment(ctx, yookassa.PaymentCreateParams{
		Amount:        yookassa.NewAmount(order.Amount, g.client.Currency()),
		Description:   fmt.Sprintf("Order %s", order.ShortID()),
		ReturnURL:     g.cfg.ReturnURL,
		CustomerEmail: order.Email,
		Metadata:      map[string]string{"order_id": order.ID.String()},
		Items:         items,
	})
	if err != nil {
		return "", "", err
	}

	redirectURL := payment.ConfirmationURL()
	if redirectURL == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, "provider returned no confirmation url")
	}
	return payment.ID, redirectURL, nil
}

type mockGateway struct {
	returnURL string
}

// NewMockGateway returns a gateway that skips the provider entirely and
// redirects straight to the success page with the order encoded in the query.
func NewMockGateway(returnURL string) Gateway {
	return &mockGateway{returnURL: returnURL}
}

func (g *mockGateway) InitiatePayment(_ context.Context, order *models.Order, _ []ReceiptLine) (string, string, error) {
	redirect, err := url.Parse(g.returnURL)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse mock return url")
	}
	q := redirect.Query()
	q.Set("mock", "1")
	q.Set("order_id", order.ID.String())
	q.Set("amount", order.Amount.StringFixed(2))
	redirect.RawQuery = q.Encode()

	return "mock-" + order.ShortID(), redirect.String(), nil
}
