package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/internal/delivery"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

type downloadStubTokens struct {
	redeemFn  func(ctx context.Context, raw string) (*models.DownloadToken, error)
	consumeFn func(ctx context.Context, id uuid.UUID) error
	consumed  int
}

func (s *downloadStubTokens) IssueFor(ctx context.Context, orderID uuid.UUID) (*models.DownloadToken, error) {
	panic("unimplemented")
}

func (s *downloadStubTokens) IssueForTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.DownloadToken, error) {
	panic("unimplemented")
}

func (s *downloadStubTokens) Redeem(ctx context.Context, raw string) (*models.DownloadToken, error) {
	return s.redeemFn(ctx, raw)
}

func (s *downloadStubTokens) Consume(ctx context.Context, id uuid.UUID) error {
	s.consumed++
	if s.consumeFn != nil {
		return s.consumeFn(ctx, id)
	}
	return nil
}

type downloadStubOrders struct {
	getFn func(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

func (s downloadStubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	panic("unimplemented")
}

func (s downloadStubOrders) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, id)
}

func (s downloadStubOrders) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, bool, error) {
	panic("unimplemented")
}

func (s downloadStubOrders) SetProviderPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	panic("unimplemented")
}

func (s downloadStubOrders) HasPurchased(ctx context.Context, email string, kind enums.ProductKind, productID uuid.UUID) (bool, error) {
	panic("unimplemented")
}

type downloadStubDelivery struct {
	buildFn func(ctx context.Context, order *models.Order) (*delivery.Payload, error)
}

func (s downloadStubDelivery) BuildPayload(ctx context.Context, order *models.Order) (*delivery.Payload, error) {
	return s.buildFn(ctx, order)
}

type nopBody struct {
	*bytes.Reader
}

func (nopBody) Close() error { return nil }

func newDownloadRequest(t *testing.T, raw string, rangeHeader string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/download/"+raw, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", raw)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestDownloadStreamsPayloadAndConsumesUsage(t *testing.T) {
	orderID := uuid.New()
	tokenID := uuid.New()
	content := []byte("audio bytes for the order")

	tokensSvc := &downloadStubTokens{
		redeemFn: func(ctx context.Context, raw string) (*models.DownloadToken, error) {
			return &models.DownloadToken{ID: tokenID, OrderID: orderID, Token: uuid.New()}, nil
		},
	}
	ordersSvc := downloadStubOrders{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusPaid}, nil
		},
	}
	deliverySvc := downloadStubDelivery{
		buildFn: func(ctx context.Context, order *models.Order) (*delivery.Payload, error) {
			return &delivery.Payload{
				Name:        "night-drive.mp3",
				ContentType: "audio/mpeg",
				Size:        int64(len(content)),
				Body:        nopBody{bytes.NewReader(content)},
			}, nil
		},
	}

	handler := Download(tokensSvc, ordersSvc, deliverySvc, testLogger(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newDownloadRequest(t, uuid.NewString(), ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "night-drive.mp3") {
		t.Fatalf("expected filename in disposition, got %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("expected Accept-Ranges bytes, got %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("body mismatch")
	}
	if tokensSvc.consumed != 1 {
		t.Fatalf("expected one usage consumed, got %d", tokensSvc.consumed)
	}
}

func TestDownloadResumesWithRangeRequest(t *testing.T) {
	orderID := uuid.New()
	content := []byte("0123456789abcdef")

	tokensSvc := &downloadStubTokens{
		redeemFn: func(ctx context.Context, raw string) (*models.DownloadToken, error) {
			return &models.DownloadToken{ID: uuid.New(), OrderID: orderID, Token: uuid.New()}, nil
		},
	}
	ordersSvc := downloadStubOrders{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusPaid}, nil
		},
	}
	deliverySvc := downloadStubDelivery{
		buildFn: func(ctx context.Context, order *models.Order) (*delivery.Payload, error) {
			return &delivery.Payload{
				Name:        "order_abc.zip",
				ContentType: "application/zip",
				Size:        int64(len(content)),
				Body:        nopBody{bytes.NewReader(content)},
				Archive:     true,
			}, nil
		},
	}

	handler := Download(tokensSvc, ordersSvc, deliverySvc, testLogger(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newDownloadRequest(t, uuid.NewString(), "bytes=10-"))

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 10-15/16" {
		t.Fatalf("unexpected Content-Range %q", got)
	}
	if rec.Body.String() != "abcdef" {
		t.Fatalf("expected tail of payload, got %q", rec.Body.String())
	}
	// A resumed request still burns a usage.
	if tokensSvc.consumed != 1 {
		t.Fatalf("expected one usage consumed, got %d", tokensSvc.consumed)
	}
}

func TestDownloadExhaustedTokenIsPlainForbidden(t *testing.T) {
	tokensSvc := &downloadStubTokens{
		redeemFn: func(ctx context.Context, raw string) (*models.DownloadToken, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached")
		},
	}

	handler := Download(tokensSvc, downloadStubOrders{}, downloadStubDelivery{}, testLogger(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newDownloadRequest(t, uuid.NewString(), ""))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "download limit reached") {
		t.Fatalf("expected limit message, got %q", rec.Body.String())
	}
}

func TestDownloadConsumeFailureAbortsStream(t *testing.T) {
	orderID := uuid.New()

	tokensSvc := &downloadStubTokens{
		redeemFn: func(ctx context.Context, raw string) (*models.DownloadToken, error) {
			return &models.DownloadToken{ID: uuid.New(), OrderID: orderID, Token: uuid.New()}, nil
		},
		consumeFn: func(ctx context.Context, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached")
		},
	}
	ordersSvc := downloadStubOrders{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusPaid}, nil
		},
	}
	deliverySvc := downloadStubDelivery{
		buildFn: func(ctx context.Context, order *models.Order) (*delivery.Payload, error) {
			return &delivery.Payload{
				Name:        "track.mp3",
				ContentType: "audio/mpeg",
				Size:        4,
				Body:        nopBody{bytes.NewReader([]byte("data"))},
			}, nil
		},
	}

	handler := Download(tokensSvc, ordersSvc, deliverySvc, testLogger(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newDownloadRequest(t, uuid.NewString(), ""))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when usage cannot be consumed, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Fatalf("no attachment headers expected on rejection")
	}
}
