package catalog

type CreateProductReq struct {
	Name  string `json:"name" validate:"required"`
	Code  string `json:"code" validate:"required"`
	Price string `json:"price" validate:"required"`
}

type UpdateProductReq struct {
	Price     string `json:"price" validate:"required"`
	Available *bool  `json:"available" validate:"required"`
}
