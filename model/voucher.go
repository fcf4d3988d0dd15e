package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherCategory string

const (
	VoucherFreeFirstUse VoucherCategory = "free-first-use"
	VoucherWelcome      VoucherCategory = "welcome"
	VoucherPaid         VoucherCategory = "paid"
)

type VoucherStatus string

const (
	VoucherActive   VoucherStatus = "active"
	VoucherRedeemed VoucherStatus = "redeemed"
	VoucherExpired  VoucherStatus = "expired"
)

type Voucher struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	Category   VoucherCategory `json:"category"`
	Free       bool            `json:"free"` // duplicates Category for clients that only know the flag
	Status     VoucherStatus   `json:"status"`
	QRPayload  string          `json:"qr_payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RedeemedAt *time.Time      `json:"redeemed_at,omitempty"`
}

// RedemptionResult is what the redeem flow hands back for display.
type RedemptionResult struct {
	VoucherID   string          `json:"voucher_id"`
	Code        string          `json:"code"`
	ProductName string          `json:"product_name"`
	Value       decimal.Decimal `json:"value"`
	RedeemedAt  time.Time       `json:"redeemed_at"`
}
