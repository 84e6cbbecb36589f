package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/pkg/enums"
)

// WalletTransaction is a best-effort side-channel record on a user's wallet
// ledger. Access-code redemptions always post with a zero amount.
type WalletTransaction struct {
	ID          uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                     `gorm:"column:user_id;type:uuid;not null"`
	Type        enums.WalletTransactionType   `gorm:"column:type;type:wallet_transaction_type;not null"`
	AmountCents int                           `gorm:"column:amount_cents;not null;default:0"`
	Code        string                        `gorm:"column:code;not null"`
	Description string                        `gorm:"column:description"`
	Status      enums.WalletTransactionStatus `gorm:"column:status;type:wallet_transaction_status;not null;default:'completed'"`
	OccurredAt  time.Time                     `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
