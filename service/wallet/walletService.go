package walletsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
	pixrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/pix"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTopupNotFound     = errors.New("topup not found")
	ErrTopupNotPending   = errors.New("topup not pending")
	ErrTopupExpired      = errors.New("topup expired")
	ErrNotOwner          = errors.New("not owner")
)

type UserRepo interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	GetBalanceForUpdate(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance decimal.Decimal) error
}

type LedgerRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]model.Transaction, error)
	InsertTopup(ctx context.Context, t *model.Topup) error
	GetTopupForUpdate(ctx context.Context, tx *sql.Tx, topupID string) (*model.Topup, error)
	MarkTopupPaid(ctx context.Context, tx *sql.Tx, topupID string) error
}

type Service interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)

	// Credit adds amount to the balance and appends a topup transaction,
	// both inside one database transaction.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)

	// Debit subtracts amount, failing with ErrInsufficientFunds when the
	// locked balance is below it.
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description string, productID *string) (decimal.Decimal, error)

	// RecordUsage appends a zero-amount voucher-redeem row. Balance untouched.
	RecordUsage(ctx context.Context, userID, productID, description string) error

	Transactions(ctx context.Context, userID string) ([]model.Transaction, error)

	CreateTopup(ctx context.Context, userID string, amount decimal.Decimal, method string) (*model.Topup, error)
	ConfirmTopup(ctx context.Context, userID, topupID string) (decimal.Decimal, error)
}

type service struct {
	db  *sql.DB
	ur  UserRepo
	lr  LedgerRepo
	pix pixrepo.Repo
}

func New(db *sql.DB, ur UserRepo, lr LedgerRepo, pix pixrepo.Repo) Service {
	return &service{db: db, ur: ur, lr: lr, pix: pix}
}

func (s *service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	bal, err := s.ur.GetBalance(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrUserNotFound
	}
	return bal, err
}

func (s *service) Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (newBal decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.ur.GetBalanceForUpdate(ctx, tx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}

	newBal = cur.Add(amount)
	if err = s.ur.UpdateBalance(ctx, tx, userID, newBal); err != nil {
		return decimal.Zero, err
	}
	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      userID,
		Kind:        model.TxTopup,
		Amount:      amount,
		Description: description,
	}); err != nil {
		return decimal.Zero, err
	}
	if err = tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

func (s *service) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string, productID *string) (newBal decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.ur.GetBalanceForUpdate(ctx, tx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	if cur.LessThan(amount) {
		err = ErrInsufficientFunds
		return decimal.Zero, err
	}

	newBal = cur.Sub(amount)
	if err = s.ur.UpdateBalance(ctx, tx, userID, newBal); err != nil {
		return decimal.Zero, err
	}
	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      userID,
		ProductID:   productID,
		Kind:        model.TxPurchase,
		Amount:      amount,
		Description: description,
	}); err != nil {
		return decimal.Zero, err
	}
	if err = tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

func (s *service) RecordUsage(ctx context.Context, userID, productID, description string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      userID,
		ProductID:   &productID,
		Kind:        model.TxVoucherRedeem,
		Amount:      decimal.Zero,
		Description: description,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.lr.ListByUser(ctx, userID)
}

func (s *service) CreateTopup(ctx context.Context, userID string, amount decimal.Decimal, method string) (*model.Topup, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	charge, err := s.pix.CreateCharge(pixrepo.CreateChargeReq{
		ExternalID:  fmt.Sprintf("topup:%s:%d", userID, time.Now().UnixNano()),
		Amount:      amount,
		Description: "Wallet top-up",
		ExpirySec:   3600,
	})
	if err != nil {
		return nil, err
	}

	t := &model.Topup{
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    model.TopupPending,
		PixCode:   charge.PixCode,
		ExpiresAt: charge.ExpiresAt,
	}
	if err := s.lr.InsertTopup(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ConfirmTopup simulates the payment gateway callback: flips the pending
// row to PAID and credits the balance in the same transaction.
func (s *service) ConfirmTopup(ctx context.Context, userID, topupID string) (newBal decimal.Decimal, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	t, err := s.lr.GetTopupForUpdate(ctx, tx, topupID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrTopupNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	if t.UserID != userID {
		err = ErrNotOwner
		return decimal.Zero, err
	}
	if t.Status != model.TopupPending {
		err = ErrTopupNotPending
		return decimal.Zero, err
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		err = ErrTopupExpired
		return decimal.Zero, err
	}

	if err = s.lr.MarkTopupPaid(ctx, tx, topupID); err != nil {
		return decimal.Zero, err
	}

	cur, err := s.ur.GetBalanceForUpdate(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	newBal = cur.Add(t.Amount)
	if err = s.ur.UpdateBalance(ctx, tx, userID, newBal); err != nil {
		return decimal.Zero, err
	}
	if err = s.lr.Insert(ctx, tx, &model.Transaction{
		UserID:      userID,
		Kind:        model.TxTopup,
		Amount:      t.Amount,
		Description: "topup: " + t.Method,
	}); err != nil {
		return decimal.Zero, err
	}
	if err = tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}
