package voucher

type IssueFreeReq struct {
	ProductID string `json:"product_id" validate:"required"`
}

type PurchaseReq struct {
	ProductID string `json:"product_id" validate:"required"`
}

type RedeemReq struct {
	// Payload is the scanned QR document or the bare voucher code.
	Payload string `json:"payload" validate:"required"`
}
