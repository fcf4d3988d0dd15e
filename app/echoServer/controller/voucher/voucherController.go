package voucher

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	vouchersvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/voucher"
)

type Controller struct {
	Svc vouchersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/vouchers/free
func (h *Controller) IssueFree(c echo.Context) error {
	var req IssueFreeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid := c.Get("user_id").(string)

	v, err := h.Svc.IssueFree(c.Request().Context(), uid, req.ProductID)
	if err != nil {
		h.Log.Error("issue free voucher", "err", err)
		switch vouchersvc.Code(err) {
		case vouchersvc.ErrProductNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, v)
}

// POST /v1/vouchers/purchase
func (h *Controller) Purchase(c echo.Context) error {
	var req PurchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid := c.Get("user_id").(string)

	out, err := h.Svc.Purchase(c.Request().Context(), uid, req.ProductID)
	if err != nil {
		h.Log.Error("voucher purchase", "err", err)
		switch vouchersvc.Code(err) {
		case vouchersvc.ErrProductNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		case vouchersvc.ErrInsufficientFunds:
			return c.JSON(http.StatusConflict, echo.Map{"message": "insufficient funds"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"voucher": out.Voucher,
		"balance": out.NewBalance,
	})
}

// POST /v1/vouchers/redeem
func (h *Controller) Redeem(c echo.Context) error {
	var req RedeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}

	res, err := h.Svc.Redeem(c.Request().Context(), req.Payload)
	if err != nil {
		h.Log.Error("voucher redeem", "err", err)
		switch vouchersvc.Code(err) {
		case vouchersvc.ErrMalformedPayload:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "unreadable voucher payload"})
		case vouchersvc.ErrVoucherNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "voucher not found"})
		case vouchersvc.ErrAlreadyRedeemed:
			return c.JSON(http.StatusConflict, echo.Map{"message": "voucher already redeemed"})
		case vouchersvc.ErrVoucherExpired:
			return c.JSON(http.StatusConflict, echo.Map{"message": "voucher expired"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, res)
}

// GET /v1/vouchers/my
func (h *Controller) My(c echo.Context) error {
	uid := c.Get("user_id").(string)
	rows, err := h.Svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("voucher list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
