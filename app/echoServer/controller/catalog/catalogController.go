package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	catalogsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/catalog"
)

type Controller struct {
	Svc catalogsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// POST /v1/products  (admin)
func (h *Controller) Create(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CreateProductReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid price"})
	}

	p, err := h.Svc.Create(c.Request().Context(), req.Name, req.Code, price)
	if err != nil {
		if errors.Is(err, catalogsvc.ErrInvalidPayload) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payload"})
		}
		if errors.Is(err, catalogsvc.ErrCodeTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "product code already in use"})
		}
		h.Log.Error("product create error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, p)
}

// PUT /v1/products/:id  (admin)
func (h *Controller) Update(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req UpdateProductReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid price"})
	}

	if err := h.Svc.Update(c.Request().Context(), c.Param("id"), price, *req.Available); err != nil {
		switch {
		case errors.Is(err, catalogsvc.ErrProductNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		case errors.Is(err, catalogsvc.ErrInvalidPayload):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payload"})
		default:
			h.Log.Error("product update error", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// GET /v1/products
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context(), isAdmin(c))
	if err != nil {
		h.Log.Error("product list error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/products/code/:code
func (h *Controller) ByCode(c echo.Context) error {
	p, err := h.Svc.ByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, catalogsvc.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		h.Log.Error("product by code error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/products/:id
func (h *Controller) Detail(c echo.Context) error {
	p, err := h.Svc.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalogsvc.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		h.Log.Error("product detail error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}
