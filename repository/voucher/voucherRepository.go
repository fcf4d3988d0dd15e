// repository/voucher/repo.go
package voucherrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
)

// ErrDuplicateActive maps the partial unique index on
// (user_id, product_id, category) WHERE status='active' AND free.
// Two racing issuances lose here instead of creating a second voucher.
var ErrDuplicateActive = errors.New("active voucher already exists")

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, v *model.Voucher) error
	ByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error)
	ActiveByUserProductCategory(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error)
	ActiveByUserCategory(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error)
	MarkRedeemed(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]model.Voucher, error)
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const voucherCols = `id, code, user_id, product_id, category, free, status, qr_payload, created_at, redeemed_at`

func scanVoucher(scan func(dest ...any) error) (*model.Voucher, error) {
	v := &model.Voucher{}
	err := scan(&v.ID, &v.Code, &v.UserID, &v.ProductID, &v.Category, &v.Free,
		&v.Status, &v.QRPayload, &v.CreatedAt, &v.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (code, user_id, product_id, category, free, status, qr_payload)
VALUES ($1, $2, $3, $4, $5, 'active', $6)
RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, q,
		v.Code, v.UserID, v.ProductID, v.Category, v.Free, v.QRPayload,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateActive
		}
		return err
	}
	v.Status = model.VoucherActive
	return nil
}

func (r *repo) ByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+voucherCols+` FROM vouchers WHERE code = $1 FOR UPDATE`, code)
	return scanVoucher(row.Scan)
}

func (r *repo) ActiveByUserProductCategory(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
	const q = `
SELECT ` + voucherCols + `
FROM vouchers
WHERE user_id = $1 AND product_id = $2 AND category = $3 AND status = 'active'
LIMIT 1`
	return scanVoucher(r.db.QueryRowContext(ctx, q, userID, productID, cat).Scan)
}

func (r *repo) ActiveByUserCategory(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error) {
	const q = `
SELECT ` + voucherCols + `
FROM vouchers
WHERE user_id = $1 AND category = $2 AND status = 'active'
LIMIT 1`
	return scanVoucher(r.db.QueryRowContext(ctx, q, userID, cat).Scan)
}

func (r *repo) MarkRedeemed(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error {
	const q = `
UPDATE vouchers
SET status = 'redeemed', redeemed_at = $2
WHERE id = $1 AND status = 'active'`
	res, err := tx.ExecContext(ctx, q, voucherID, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]model.Voucher, error) {
	const q = `
SELECT ` + voucherCols + `
FROM vouchers
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Voucher
	for rows.Next() {
		var v model.Voucher
		if err := rows.Scan(&v.ID, &v.Code, &v.UserID, &v.ProductID, &v.Category, &v.Free,
			&v.Status, &v.QRPayload, &v.CreatedAt, &v.RedeemedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repo) MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE vouchers
SET status = 'expired'
WHERE status = 'active' AND created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
