package wallet

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	walletsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/wallet"
)

type Controller struct {
	Svc walletsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/wallet/balance
func (h *Controller) Balance(c echo.Context) error {
	userID := c.Get("user_id").(string)
	bal, err := h.Svc.Balance(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, walletsvc.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		h.Log.Error("balance failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": bal})
}

// GET /v1/wallet/transactions
func (h *Controller) Transactions(c echo.Context) error {
	userID := c.Get("user_id").(string)
	rows, err := h.Svc.Transactions(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("transactions failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/wallet/topups
// @Summary Create a simulated PIX/card top-up
// @Success 201 {object} map[string]any
// @Failure 400,401,500
func (h *Controller) CreateTopup(c echo.Context) error {
	var req CreateTopupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  map[string]string{"amount": "required", "method": "pix or card"},
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid amount"})
	}

	userID := c.Get("user_id").(string)
	t, err := h.Svc.CreateTopup(c.Request().Context(), userID, amount, req.Method)
	if err != nil {
		if errors.Is(err, walletsvc.ErrInvalidAmount) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "amount must be positive"})
		}
		h.Log.Error("CreateTopup failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"topup_id":   t.ID,
		"pix_code":   t.PixCode,
		"expires_at": t.ExpiresAt,
	})
}

// POST /v1/wallet/topups/:id/confirm
func (h *Controller) ConfirmTopup(c echo.Context) error {
	userID := c.Get("user_id").(string)
	newBal, err := h.Svc.ConfirmTopup(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, walletsvc.ErrTopupNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "topup not found"})
		case errors.Is(err, walletsvc.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case errors.Is(err, walletsvc.ErrTopupNotPending):
			return c.JSON(http.StatusConflict, echo.Map{"message": "topup not pending"})
		case errors.Is(err, walletsvc.ErrTopupExpired):
			return c.JSON(http.StatusConflict, echo.Map{"message": "topup expired"})
		default:
			h.Log.Error("ConfirmTopup failed", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": newBal})
}
