package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/admin"
	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/auth"
	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/catalog"
	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/voucher"
	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/wallet"
)

type C struct {
	Auth      *auth.Controller
	Catalog   *catalog.Controller
	Wallet    *wallet.Controller
	Voucher   *voucher.Controller
	Admin     *admin.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/auth/register", c.Auth.Register)
	pub.POST("/auth/login", c.Auth.Login)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id / role extraction from verified claims
	authed.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var claims jwt.MapClaims
			switch tok := ctx.Get("user").(type) {
			case *jwt.Token:
				claims, _ = tok.Claims.(jwt.MapClaims)
			case jwt.MapClaims:
				claims = tok
			}
			if claims == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(string)
			if !ok || sub == "" {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", sub)
			role, _ := claims["role"].(string)
			ctx.Set("role", role)
			return next(ctx)
		}
	})

	// Catalog
	authed.GET("/products", c.Catalog.List)
	authed.GET("/products/code/:code", c.Catalog.ByCode)
	authed.GET("/products/:id", c.Catalog.Detail)

	// Wallet
	authed.GET("/wallet/balance", c.Wallet.Balance)
	authed.GET("/wallet/transactions", c.Wallet.Transactions)
	authed.POST("/wallet/topups", c.Wallet.CreateTopup)
	authed.POST("/wallet/topups/:id/confirm", c.Wallet.ConfirmTopup)

	// Vouchers
	authed.POST("/vouchers/free", c.Voucher.IssueFree)
	authed.POST("/vouchers/purchase", c.Voucher.Purchase)
	authed.POST("/vouchers/redeem", c.Voucher.Redeem)
	authed.GET("/vouchers/my", c.Voucher.My)

	// Admin
	authed.POST("/products", c.Catalog.Create)
	authed.PUT("/products/:id", c.Catalog.Update)
	authed.GET("/admin/users", c.Admin.ListUsers)
	authed.PATCH("/admin/users/:id/role", c.Admin.SetRole)
	authed.POST("/admin/users/:id/credit", c.Admin.Credit)
	authed.GET("/admin/reports/sales", c.Admin.SalesReport)
}
