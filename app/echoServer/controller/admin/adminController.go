package admin

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	userrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/user"
	reportsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/report"
	walletsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/wallet"
)

type Controller struct {
	Users   userrepo.Repo
	Wallet  walletsvc.Service
	Reports reportsvc.Service
	V       *validator.Validate
	Log     *slog.Logger
}

type SetRoleReq struct {
	Role string `json:"role" validate:"required,oneof=student admin"`
}

type CreditReq struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// GET /v1/admin/users
func (h *Controller) ListUsers(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rows, err := h.Users.List(c.Request().Context())
	if err != nil {
		h.Log.Error("user list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// PATCH /v1/admin/users/:id/role
func (h *Controller) SetRole(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req SetRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	if err := h.Users.SetRole(c.Request().Context(), c.Param("id"), req.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		h.Log.Error("set role", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// POST /v1/admin/users/:id/credit — manual balance adjustment
func (h *Controller) Credit(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CreditReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid amount"})
	}

	newBal, err := h.Wallet.Credit(c.Request().Context(), c.Param("id"), amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, walletsvc.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		case errors.Is(err, walletsvc.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "amount must be positive"})
		default:
			h.Log.Error("manual credit", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": newBal})
}

// GET /v1/admin/reports/sales?from=2026-08-01&to=2026-09-01
func (h *Controller) SalesReport(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid from date"})
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid to date"})
	}

	rows, err := h.Reports.Sales(c.Request().Context(), from, to)
	if err != nil {
		if errors.Is(err, reportsvc.ErrBadRange) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date range"})
		}
		h.Log.Error("sales report", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
