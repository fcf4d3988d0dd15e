package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QRPayload is the denormalized voucher snapshot embedded at issuance and
// shown as a QR code. Redemption accepts either this JSON document or the
// bare voucher code, so scanning works without a catalog round trip.
type QRPayload struct {
	Code        string          `json:"code"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	UserID      string          `json:"user_id"`
	IssuedAt    time.Time       `json:"issued_at"`
	Value       decimal.Decimal `json:"value"`
	Category    VoucherCategory `json:"category"`
	Message     string          `json:"message,omitempty"`
}

func (p QRPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var ErrBadQRPayload = errors.New("unresolvable qr payload")

// ResolveCode extracts a voucher code from scanner input: a raw code string
// or a serialized QRPayload.
func ResolveCode(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrBadQRPayload
	}
	if strings.HasPrefix(s, "{") {
		var p QRPayload
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return "", ErrBadQRPayload
		}
		if p.Code == "" {
			return "", ErrBadQRPayload
		}
		return p.Code, nil
	}
	return s, nil
}
