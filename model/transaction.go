package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxKind string

const (
	TxTopup           TxKind = "topup"
	TxPurchase        TxKind = "purchase"
	TxVoucherPurchase TxKind = "voucher-purchase"
	TxVoucherRedeem   TxKind = "voucher-redeem"
)

// Transactions are append-only; status is always completed here, the
// pending/failed states live on the topup row instead.
const TxCompleted = "completed"

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProductID   *string         `json:"product_id,omitempty"`
	Kind        TxKind          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TopupStatus string

const (
	TopupPending TopupStatus = "PENDING"
	TopupPaid    TopupStatus = "PAID"
	TopupExpired TopupStatus = "EXPIRED"
)

type Topup struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"` // pix | card
	Status    TopupStatus     `json:"status"`
	PixCode   string          `json:"pix_code,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
