package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proffmusic/proffmusic-backend/api/responses"
	"github.com/proffmusic/proffmusic-backend/internal/delivery"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/internal/tokens"
	"github.com/proffmusic/proffmusic-backend/pkg/httprange"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/metrics"
)

// Download redeems a token and streams the order's payload with resume
// support. Rejections are plain text because the caller is a browser
// following an emailed link.
func Download(
	tokensSvc tokens.Service,
	ordersSvc orders.Service,
	deliverySvc delivery.Service,
	logg *logger.Logger,
	m *metrics.PipelineMetrics,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "token")

		token, err := tokensSvc.Redeem(r.Context(), raw)
		if err != nil {
			m.IncDownload("rejected")
			responses.WritePlainError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), token.OrderID.String())

		order, err := ordersSvc.GetOrder(ctx, token.OrderID)
		if err != nil {
			m.IncDownload("missing")
			responses.WritePlainError(ctx, logg, w, err)
			return
		}

		payload, err := deliverySvc.BuildPayload(ctx, order)
		if err != nil {
			m.IncDownload("missing")
			responses.WritePlainError(ctx, logg, w, err)
			return
		}
		defer payload.Close()

		// The usage burns once the payload exists; a failed stream after
		// this point still counts, which is what the resume support is for.
		if err := tokensSvc.Consume(ctx, token.ID); err != nil {
			m.IncDownload("rejected")
			responses.WritePlainError(ctx, logg, w, err)
			return
		}

		if payload.Archive {
			m.IncDownload("archive")
		} else {
			m.IncDownload("file")
		}
		m.ObserveDeliveredBytes(payload.Size)

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Name))
		if err := httprange.Serve(w, r, payload.Body, payload.Size, payload.ContentType); err != nil {
			// Headers are gone; just record the broken stream.
			logg.Warn(logg.WithField(ctx, "payload", payload.Name), "download stream interrupted")
		}
	}
}
