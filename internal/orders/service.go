package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the order ledger lifecycle: opening pending orders with
// price capture and the pending-to-paid transition.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, bool, error)
	SetProviderPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	HasPurchased(ctx context.Context, email string, kind enums.ProductKind, productID uuid.UUID) (bool, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog catalog.Service
	logger  *logger.Logger
}

// NewService builds the order ledger service.
func NewService(repo Repository, tx txRunner, catalogSvc catalog.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, catalog: catalogSvc, logger: logg}, nil
}

// CreateOrder resolves every product reference, captures current catalog
// prices, and writes the order plus its items in one transaction. A single
// unknown product aborts the whole checkout with no ledger row.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	products := make([]*catalog.Product, 0, len(input.Items))
	total := decimal.Zero
	for _, item := range input.Items {
		product, err := s.catalog.ResolveProduct(ctx, item.Kind, item.ID)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
		price, err := decimal.NewFromString(product.Price())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse catalog price")
		}
		total = total.Add(price)
	}

	order := &models.Order{
		ID:     uuid.New(),
		UserID: input.UserID,
		Email:  input.Email,
		Status: enums.OrderStatusPending,
		Amount: total,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(products))
		for _, product := range products {
			item := models.OrderItem{
				ID:      uuid.New(),
				OrderID: order.ID,
				Price:   decimal.RequireFromString(product.Price()),
			}
			id := product.ID()
			switch product.Kind {
			case enums.ProductKindTrack:
				item.TrackID = &id
			case enums.ProductKindCollection:
				item.CollectionID = &id
			}
			items = append(items, item)
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	s.logger.Info(ctx, "order created")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// MarkPaid transitions a pending order to paid. The second return value
// reports whether this call performed the transition; re-delivered
// confirmations for an already paid order return false with no error.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, bool, error) {
	var order *models.Order
	var transitioned bool

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkPaid(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}

		order, err = repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if !flipped && order.Status != enums.OrderStatusPaid {
			ctx := s.logger.WithOrderID(ctx, id.String())
			s.logger.Warn(ctx, fmt.Sprintf("payment confirmation for order in %s state", order.Status))
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot transition to paid")
		}

		transitioned = flipped
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, transitioned, nil
}

func (s *service) SetProviderPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	if err := s.repo.SetProviderPaymentID(ctx, id, paymentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store provider payment id")
	}
	return nil
}

func (s *service) HasPurchased(ctx context.Context, email string, kind enums.ProductKind, productID uuid.UUID) (bool, error) {
	if email == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if !kind.Valid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product kind must be track or collection")
	}
	purchased, err := s.repo.HasPaidOrderForProduct(ctx, email, kind, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query purchase history")
	}
	return purchased, nil
}
