package vouchersvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
	voucherrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/voucher"
)

// errors used by controllers

type ErrCode string

const (
	ErrProductNotFound   ErrCode = "PRODUCT_NOT_FOUND"
	ErrVoucherNotFound   ErrCode = "VOUCHER_NOT_FOUND"
	ErrAlreadyRedeemed   ErrCode = "ALREADY_REDEEMED"
	ErrVoucherExpired    ErrCode = "VOUCHER_EXPIRED"
	ErrMalformedPayload  ErrCode = "MALFORMED_PAYLOAD"
	ErrInsufficientFunds ErrCode = "INSUFFICIENT_FUNDS"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Products whose code starts with this prefix are eligible welcome gifts.
const welcomeCodePrefix = "WELCOME"

type ProductRepo interface {
	ByID(ctx context.Context, id string) (*model.Product, error)
	FirstByCodePrefix(ctx context.Context, prefix string) (*model.Product, error)
	FirstAvailable(ctx context.Context) (*model.Product, error)
}

type UserRepo interface {
	GetBalanceForUpdate(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance decimal.Decimal) error
}

type LedgerRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error
}

type Purchased struct {
	Voucher    *model.Voucher
	NewBalance decimal.Decimal
}

type Service interface {
	// IssueFree hands out the one free voucher per (user, product).
	// Calling it again returns the existing active voucher.
	IssueFree(ctx context.Context, userID, productID string) (*model.Voucher, error)

	// IssueWelcome issues the one-time welcome voucher for a new user,
	// picking an eligible product from the catalog.
	IssueWelcome(ctx context.Context, userID string) (*model.Voucher, error)

	// Purchase debits the product price and creates a paid voucher in a
	// single transaction.
	Purchase(ctx context.Context, userID, productID string) (*Purchased, error)

	// Redeem consumes a voucher exactly once, given its code or its
	// serialized QR payload.
	Redeem(ctx context.Context, payloadOrCode string) (*model.RedemptionResult, error)

	ListForUser(ctx context.Context, userID string) ([]model.Voucher, error)
}

type service struct {
	db *sql.DB
	vr voucherrepo.Repo
	pr ProductRepo
	ur UserRepo
	lr LedgerRepo
}

func New(db *sql.DB, vr voucherrepo.Repo, pr ProductRepo, ur UserRepo, lr LedgerRepo) Service {
	return &service{db: db, vr: vr, pr: pr, ur: ur, lr: lr}
}

func voucherCode(prefix, userID, productID string) string {
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s-%d", prefix, userID, productID, time.Now().UnixMilli()))
}

func buildPayload(code string, p *model.Product, userID string, cat model.VoucherCategory, msg string) (string, error) {
	payload := model.QRPayload{
		Code:        code,
		ProductID:   p.ID,
		ProductName: p.Name,
		ProductCode: p.Code,
		UserID:      userID,
		IssuedAt:    time.Now().UTC(),
		Value:       p.Price,
		Category:    cat,
		Message:     msg,
	}
	return payload.Encode()
}

func (s *service) IssueFree(ctx context.Context, userID, productID string) (*model.Voucher, error) {
	existing, err := s.vr.ActiveByUserProductCategory(ctx, userID, productID, model.VoucherFreeFirstUse)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	p, err := s.pr.ByID(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}

	return s.insertFree(ctx, userID, p, model.VoucherFreeFirstUse, "TKT-FREE", "")
}

func (s *service) IssueWelcome(ctx context.Context, userID string) (*model.Voucher, error) {
	existing, err := s.vr.ActiveByUserCategory(ctx, userID, model.VoucherWelcome)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	p, err := s.pr.FirstByCodePrefix(ctx, welcomeCodePrefix)
	if errors.Is(err, sql.ErrNoRows) {
		// No dedicated welcome product configured; any product will do.
		p, err = s.pr.FirstAvailable(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrProductNotFound)
		}
	}
	if err != nil {
		return nil, err
	}

	return s.insertFree(ctx, userID, p, model.VoucherWelcome, "TKT-WELCOME", "Welcome to the cantina!")
}

func (s *service) insertFree(ctx context.Context, userID string, p *model.Product, cat model.VoucherCategory, prefix, msg string) (v *model.Voucher, err error) {
	code := voucherCode(prefix, userID, p.ID)
	payload, err := buildPayload(code, p, userID, cat, msg)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	v = &model.Voucher{
		Code:      code,
		UserID:    userID,
		ProductID: p.ID,
		Category:  cat,
		Free:      true,
		Status:    model.VoucherActive,
		QRPayload: payload,
	}
	if err = s.vr.Insert(ctx, tx, v); err != nil {
		if errors.Is(err, voucherrepo.ErrDuplicateActive) {
			// Lost a race against a concurrent issuance; the winner's
			// voucher is the one to hand back.
			_ = tx.Rollback()
			err = nil
			if cat == model.VoucherWelcome {
				return s.vr.ActiveByUserCategory(ctx, userID, cat)
			}
			return s.vr.ActiveByUserProductCategory(ctx, userID, p.ID, cat)
		}
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) Purchase(ctx context.Context, userID, productID string) (out *Purchased, err error) {
	p, err := s.pr.ByID(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}

	code := voucherCode("TKT-PAID", userID, p.ID)
	payload, err := buildPayload(code, p, userID, model.VoucherPaid, "")
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.ur.GetBalanceForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if cur.LessThan(p.Price) {
		err = makeErr(ErrInsufficientFunds)
		return nil, err
	}

	newBal := cur.Sub(p.Price)
	if err = s.ur.UpdateBalance(ctx, tx, userID, newBal); err != nil {
		return nil, err
	}
	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      userID,
		ProductID:   &p.ID,
		Kind:        model.TxVoucherPurchase,
		Amount:      p.Price,
		Description: "purchase: " + p.Name,
	}); err != nil {
		return nil, err
	}

	v := &model.Voucher{
		Code:      code,
		UserID:    userID,
		ProductID: p.ID,
		Category:  model.VoucherPaid,
		Free:      false,
		Status:    model.VoucherActive,
		QRPayload: payload,
	}
	if err = s.vr.Insert(ctx, tx, v); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &Purchased{Voucher: v, NewBalance: newBal}, nil
}

func (s *service) Redeem(ctx context.Context, payloadOrCode string) (res *model.RedemptionResult, err error) {
	code, err := model.ResolveCode(payloadOrCode)
	if err != nil {
		return nil, makeErr(ErrMalformedPayload)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	v, err := s.vr.ByCodeForUpdate(ctx, tx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrVoucherNotFound)
	}
	if err != nil {
		return nil, err
	}
	switch v.Status {
	case model.VoucherActive:
	case model.VoucherExpired:
		err = makeErr(ErrVoucherExpired)
		return nil, err
	default:
		err = makeErr(ErrAlreadyRedeemed)
		return nil, err
	}

	productName, value := v.ProductID, decimal.Zero
	var snap model.QRPayload
	if jerr := json.Unmarshal([]byte(v.QRPayload), &snap); jerr == nil && snap.ProductName != "" {
		productName, value = snap.ProductName, snap.Value
	} else if p, perr := s.pr.ByID(ctx, v.ProductID); perr == nil {
		productName, value = p.Name, p.Price
	}

	now := time.Now().UTC()
	if err = s.vr.MarkRedeemed(ctx, tx, v.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = makeErr(ErrAlreadyRedeemed)
		}
		return nil, err
	}
	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      v.UserID,
		ProductID:   &v.ProductID,
		Kind:        model.TxVoucherRedeem,
		Amount:      decimal.Zero,
		Description: "usage: " + productName,
	}); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &model.RedemptionResult{
		VoucherID:   v.ID,
		Code:        v.Code,
		ProductName: productName,
		Value:       value,
		RedeemedAt:  now,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]model.Voucher, error) {
	out, err := s.vr.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Voucher{}
	}
	return out, nil
}
