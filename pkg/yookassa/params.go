package yookassa

import (
	"github.com/shopspring/decimal"
)

const maxReceiptDescriptionLen = 128

// Amount is a money value in the provider's string format, e.g. "150.00".
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// NewAmount formats a decimal price into the provider's two-digit form.
func NewAmount(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value.StringFixed(2), Currency: currency}
}

// ReceiptItem is one fiscal-receipt line. Quantity is always a single unit
// for digital goods.
type ReceiptItem struct {
	Description string
	Amount      Amount
}

// PaymentCreateParams describes a hosted-redirect payment.
type PaymentCreateParams struct {
	Amount         Amount
	Description    string
	ReturnURL      string
	CustomerEmail  string
	Metadata       map[string]string
	Items          []ReceiptItem
	IdempotencyKey string
}

// Payment is the provider's payment object, decoded down to the fields the
// pipeline consumes.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Confirmation carries the redirect URL the buyer is sent to.
type Confirmation struct {
	Type            string `json:"type"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
	ReturnURL       string `json:"return_url,omitempty"`
}

// ConfirmationURL returns the hosted checkout URL, empty when absent.
func (p *Payment) ConfirmationURL() string {
	if p == nil || p.Confirmation == nil {
		return ""
	}
	return p.Confirmation.ConfirmationURL
}

type createPaymentRequest struct {
	Amount       Amount              `json:"amount"`
	Capture      bool                `json:"capture"`
	Confirmation confirmationRequest `json:"confirmation"`
	Description  string              `json:"description,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Receipt      *receiptRequest     `json:"receipt,omitempty"`
}

type confirmationRequest struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url"`
}

type receiptRequest struct {
	Customer receiptCustomer     `json:"customer"`
	Items    []receiptItemEntity `json:"items"`
}

type receiptCustomer struct {
	Email string `json:"email"`
}

type receiptItemEntity struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Amount      Amount `json:"amount"`
	VatCode     int    `json:"vat_code"`
}

func (p PaymentCreateParams) toRequest() createPaymentRequest {
	req := createPaymentRequest{
		Amount:  p.Amount,
		Capture: true,
		Confirmation: confirmationRequest{
			Type:      "redirect",
			ReturnURL: p.ReturnURL,
		},
		Description: p.Description,
		Metadata:    p.Metadata,
	}

	if p.CustomerEmail != "" && len(p.Items) > 0 {
		receipt := &receiptRequest{
			Customer: receiptCustomer{Email: p.CustomerEmail},
		}
		for _, item := range p.Items {
			receipt.Items = append(receipt.Items, receiptItemEntity{
				Description: truncateDescription(item.Description),
				Quantity:    "1.00",
				Amount:      item.Amount,
				VatCode:     1,
			})
		}
		req.Receipt = receipt
	}
	return req
}

// truncateDescription clamps receipt lines to the provider's 128-char limit,
// respecting rune boundaries.
func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= maxReceiptDescriptionLen {
		return s
	}
	return string(runes[:maxReceiptDescriptionLen])
}
