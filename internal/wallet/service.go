package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
)

type transactionsRepository interface {
	Create(ctx context.Context, txn *models.WalletTransaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service posts redemption records to the wallet ledger. Redemptions are
// free, so every entry carries a zero amount; the ledger exists for the
// user's transaction history.
type Service interface {
	RecordRedemption(ctx context.Context, input RedemptionRecord) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type service struct {
	repo  transactionsRepository
	users usersRepository
	now   func() time.Time
}

// RedemptionRecord describes one redemption to post.
type RedemptionRecord struct {
	UserID      uuid.UUID
	Type        enums.WalletTransactionType
	Code        string
	Description string
}

// NewService builds the wallet ledger service.
func NewService(repo transactionsRepository, users usersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, users: users, now: time.Now}, nil
}

func (s *service) RecordRedemption(ctx context.Context, input RedemptionRecord) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	txn := &models.WalletTransaction{
		UserID:      input.UserID,
		Type:        input.Type,
		AmountCents: 0,
		Code:        input.Code,
		Description: input.Description,
		Status:      enums.WalletTransactionStatusCompleted,
		OccurredAt:  s.now(),
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	return nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return rows, nil
}
