package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/api/middleware"
	"github.com/proffmusic/proffmusic-backend/api/responses"
	"github.com/proffmusic/proffmusic-backend/api/validators"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/internal/payments"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

type checkoutItemRequest struct {
	Type string `json:"type" validate:"required,oneof=track collection"`
	ID   string `json:"id" validate:"required,uuid"`
}

type checkoutRequest struct {
	Email string                `json:"email" validate:"required,email"`
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type checkoutResponse struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

// Checkout opens an order and returns the payment redirect.
func Checkout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateOrderInput{Email: req.Email}
		for _, item := range req.Items {
			id, err := uuid.Parse(item.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "item id must be a valid uuid"))
				return
			}
			input.Items = append(input.Items, orders.CheckoutItem{
				Kind: enums.ProductKind(item.Type),
				ID:   id,
			})
		}

		// Logged-in buyers get the order attached to their account.
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				input.UserID = &userID
			}
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:    result.OrderID.String(),
			PaymentURL: result.PaymentURL,
		})
	}
}
