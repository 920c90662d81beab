package yookassa

import (
	"encoding/json"

	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
)

// Webhook event names the pipeline distinguishes.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// Notification is the provider's webhook envelope.
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}

// OrderID extracts the order reference planted in payment metadata at
// creation time.
func (n *Notification) OrderID() string {
	if n == nil {
		return ""
	}
	return n.Object.Metadata["order_id"]
}

// ParseNotification decodes a webhook body. Only a body that is not valid
// JSON is malformed; callers should NACK it so the provider retries. An
// envelope with an empty or unrecognized event still parses and is acked
// upstream like any other ignored event.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	return &n, nil
}
