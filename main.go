// Package main cantina API.
//
// @title           Cantina Wallet API
// @version         1.0
// @description     school cantina ordering (wallet, vouchers, catalog, admin).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer"
	adminctrl "github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/admin"
	authctrl "github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/auth"
	catalogctrl "github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/catalog"
	voucherctrl "github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/voucher"
	walletctrl "github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/controller/wallet"
	"github.com/vhreisswitz/trabalho-cantina-sub000/app/echoServer/validation"
	"github.com/vhreisswitz/trabalho-cantina-sub000/config"
	ledgerrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/ledger"
	pixrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/pix"
	productrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/product"
	userrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/user"
	voucherrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/voucher"
	authsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/auth"
	catalogsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/catalog"
	reportsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/report"
	vouchersvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/voucher"
	walletsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/wallet"
	"github.com/vhreisswitz/trabalho-cantina-sub000/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	pr := productrepo.New(db)
	lr := ledgerrepo.New(db)
	vr := voucherrepo.New(db)
	px := pixrepo.NewSim()

	// services
	ws := walletsvc.New(db, ur, lr, px)
	vs := vouchersvc.New(db, vr, pr, ur, lr)
	as := authsvc.New(ur, vs, cfg.JWTSecret, log)
	cs := catalogsvc.New(pr)
	rs := reportsvc.New(lr)

	// voucher expiry sweep (disabled when TTL is 0)
	if cfg.VoucherTTLHours > 0 {
		sweep := vouchersvc.NewSweeper(vr, time.Duration(cfg.VoucherTTLHours)*time.Hour)
		go func() {
			t := time.NewTicker(10 * time.Minute)
			defer t.Stop()
			for range t.C {
				n, err := sweep.ExpireStale(ctx)
				if err != nil {
					log.Error("voucher sweep failed", "err", err)
					continue
				}
				if n > 0 {
					log.Info("vouchers expired", "count", n)
				}
			}
		}()
	}

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	catalogC := &catalogctrl.Controller{Svc: cs, V: v, Log: log}
	walletC := &walletctrl.Controller{Svc: ws, V: v, Log: log}
	voucherC := &voucherctrl.Controller{Svc: vs, V: v, Log: log}
	adminC := &adminctrl.Controller{Users: ur, Wallet: ws, Reports: rs, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:    authC,
		Catalog: catalogC,
		Wallet:  walletC,
		Voucher: voucherC,
		Admin:   adminC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
