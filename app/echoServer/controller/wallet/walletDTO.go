package wallet

type CreateTopupReq struct {
	Amount string `json:"amount" validate:"required"`
	Method string `json:"method" validate:"required,oneof=pix card"`
}
