// repository/ledger/repo.go
package ledgerrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
)

// SalesRow is one line of the admin sales report.
type SalesRow struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Count       int64           `json:"count"`
	Gross       decimal.Decimal `json:"gross"`
}

type Repo interface {
	// Insert appends a transaction row inside a caller-owned tx. Rows are
	// never updated or deleted.
	Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]model.Transaction, error)
	SalesByProduct(ctx context.Context, from, to time.Time) ([]SalesRow, error)

	InsertTopup(ctx context.Context, t *model.Topup) error
	GetTopupForUpdate(ctx context.Context, tx *sql.Tx, topupID string) (*model.Topup, error)
	MarkTopupPaid(ctx context.Context, tx *sql.Tx, topupID string) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (user_id, product_id, kind, amount, description, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	return tx.QueryRowContext(ctx, q,
		t.UserID, t.ProductID, t.Kind, t.Amount, t.Description, model.TxCompleted,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	const q = `
SELECT id, user_id, product_id, kind, amount, description, status, created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.ProductID, &t.Kind, &t.Amount, &t.Description, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repo) SalesByProduct(ctx context.Context, from, to time.Time) ([]SalesRow, error) {
	const q = `
SELECT t.product_id, p.name, COUNT(*)::BIGINT, COALESCE(SUM(t.amount), 0)
FROM transactions t
JOIN products p ON p.id = t.product_id
WHERE t.kind IN ('purchase', 'voucher-purchase')
  AND t.created_at >= $1 AND t.created_at < $2
GROUP BY t.product_id, p.name
ORDER BY SUM(t.amount) DESC`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesRow
	for rows.Next() {
		var s SalesRow
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.Count, &s.Gross); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) InsertTopup(ctx context.Context, t *model.Topup) error {
	const q = `
INSERT INTO topups (user_id, amount, method, status, pix_code, expires_at)
VALUES ($1, $2, $3, 'PENDING', $4, $5)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		t.UserID, t.Amount, t.Method, t.PixCode, t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *repo) GetTopupForUpdate(ctx context.Context, tx *sql.Tx, topupID string) (*model.Topup, error) {
	const q = `
SELECT id, user_id, amount, method, status, pix_code, expires_at, paid_at, created_at
FROM topups
WHERE id = $1
FOR UPDATE`
	t := &model.Topup{}
	err := tx.QueryRowContext(ctx, q, topupID).Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Method, &t.Status, &t.PixCode, &t.ExpiresAt, &t.PaidAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repo) MarkTopupPaid(ctx context.Context, tx *sql.Tx, topupID string) error {
	const q = `
UPDATE topups
SET status = 'PAID', paid_at = NOW()
WHERE id = $1 AND status = 'PENDING'`
	res, err := tx.ExecContext(ctx, q, topupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
