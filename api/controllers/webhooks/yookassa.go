package webhooks

import (
	"io"
	"net/http"

	"github.com/proffmusic/proffmusic-backend/api/responses"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"

	yookassawebhook "github.com/proffmusic/proffmusic-backend/internal/webhooks/yookassa"
)

const maxWebhookBodyBytes = 1 << 20

// YooKassa receives provider payment notifications. Parseable notifications
// are always acknowledged with 200; only an unparseable body gets 400.
func YooKassa(svc yookassawebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		if err := svc.ProcessNotification(r.Context(), body); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			logg.Error(r.Context(), "webhook processing failed, acknowledging receipt", err)
		}

		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
