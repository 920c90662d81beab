package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/api/middleware"
	"github.com/proffmusic/proffmusic-backend/api/responses"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

type libraryAccessResponse struct {
	Purchased bool `json:"purchased"`
}

// LibraryAccess reports whether the caller already owns a product. The email
// comes from the bearer token; guests pass it explicitly.
func LibraryAccess(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := middleware.EmailFromContext(r.Context())
		if email == "" {
			email = r.URL.Query().Get("email")
		}
		if email == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "email required"))
			return
		}

		kind := enums.ProductKind(r.URL.Query().Get("kind"))
		if !kind.Valid() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "kind must be track or collection"))
			return
		}

		productID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "id must be a valid uuid"))
			return
		}

		purchased, err := ordersSvc.HasPurchased(r.Context(), email, kind, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, libraryAccessResponse{Purchased: purchased})
	}
}
