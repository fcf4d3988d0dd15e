package pixrepo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateChargeReq struct {
	ExternalID  string
	Amount      decimal.Decimal
	Description string
	ExpirySec   int
}

type CreateChargeResp struct {
	ChargeID  string
	PixCode   string
	ExpiresAt time.Time
}

type Repo interface {
	CreateCharge(req CreateChargeReq) (*CreateChargeResp, error)
}

// sim generates PIX copy-paste codes locally. Real gateway integration is
// intentionally out of scope; the app shell renders the code and the
// confirm endpoint plays the part of the webhook.
type sim struct{}

func NewSim() Repo { return &sim{} }

func (s *sim) CreateCharge(req CreateChargeReq) (*CreateChargeResp, error) {
	id := uuid.NewString()
	code := fmt.Sprintf("PIX-%s-%s",
		strings.ToUpper(strings.ReplaceAll(id, "-", "")[:12]),
		req.Amount.StringFixed(2))
	return &CreateChargeResp{
		ChargeID:  id,
		PixCode:   code,
		ExpiresAt: time.Now().UTC().Add(time.Duration(req.ExpirySec) * time.Second),
	}, nil
}
