package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/config"
	"github.com/proffmusic/proffmusic-backend/pkg/db"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
)

// Service manages the lifetime of download tokens: one per order, minted at
// payment confirmation, validated and consumed at redemption.
type Service interface {
	// IssueFor returns the order's token, creating it on first call.
	// Safe for concurrent callers; all of them receive the same token.
	IssueFor(ctx context.Context, orderID uuid.UUID) (*models.DownloadToken, error)
	// IssueForTx is IssueFor running on an existing transaction.
	IssueForTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.DownloadToken, error)
	// Redeem validates a raw token string and returns the row when usable.
	Redeem(ctx context.Context, raw string) (*models.DownloadToken, error)
	// Consume burns one usage. Callers invoke it only after the response
	// payload has been materialized.
	Consume(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	cfg    config.DownloadConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds the download token service.
func NewService(repo Repository, cfg config.DownloadConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tokens repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 48 * time.Hour
	}
	if cfg.MaxUsages <= 0 {
		cfg.MaxUsages = 3
	}
	return &service{repo: repo, cfg: cfg, logger: logg, now: time.Now}, nil
}

func (s *service) IssueFor(ctx context.Context, orderID uuid.UUID) (*models.DownloadToken, error) {
	return s.IssueForTx(ctx, nil, orderID)
}

func (s *service) IssueForTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.DownloadToken, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load download token")
	}

	token := &models.DownloadToken{
		ID:        uuid.New(),
		OrderID:   orderID,
		Token:     uuid.New(),
		MaxUsages: s.cfg.MaxUsages,
		ExpiresAt: s.now().Add(s.cfg.TokenTTL),
	}
	created, err := repo.Create(ctx, token)
	if err == nil {
		return created, nil
	}

	// A concurrent mint won the unique order_id race; use its row.
	if db.IsUniqueViolation(err, "") {
		existing, findErr := repo.FindByOrderID(ctx, orderID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load download token after race")
		}
		return existing, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create download token")
}

func (s *service) Redeem(ctx context.Context, raw string) (*models.DownloadToken, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "download link not found")
	}

	token, err := s.repo.FindByToken(ctx, parsed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "download link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load download token")
	}

	if token.Expired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download link expired")
	}
	if token.Exhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached")
	}
	return token, nil
}

func (s *service) Consume(ctx context.Context, id uuid.UUID) error {
	updated, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume download token")
	}
	if !updated {
		// A concurrent redemption took the last usage between the
		// validity check and this increment.
		return pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached")
	}
	return nil
}
