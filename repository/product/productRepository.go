package productrepo

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
)

type Repo interface {
	Create(ctx context.Context, p *model.Product) error
	ByID(ctx context.Context, id string) (*model.Product, error)
	ByCode(ctx context.Context, code string) (*model.Product, error)
	List(ctx context.Context, availableOnly bool) ([]model.Product, error)
	Update(ctx context.Context, id string, price decimal.Decimal, available bool) error

	// FirstByCodePrefix picks the lowest-code product matching the prefix,
	// falling back happens in the service.
	FirstByCodePrefix(ctx context.Context, prefix string) (*model.Product, error)
	FirstAvailable(ctx context.Context) (*model.Product, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const productCols = `id, name, code, price, available, created_at`

func (r *repo) scanOne(row *sql.Row) (*model.Product, error) {
	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.Available, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repo) Create(ctx context.Context, p *model.Product) error {
	const q = `
INSERT INTO products (name, code, price, available)
VALUES ($1, upper($2), $3, $4)
RETURNING id, code, created_at`
	return r.db.QueryRowContext(ctx, q, p.Name, p.Code, p.Price, p.Available).
		Scan(&p.ID, &p.Code, &p.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id string) (*model.Product, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE id = $1`, id))
}

func (r *repo) ByCode(ctx context.Context, code string) (*model.Product, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE code = upper($1)`, code))
}

func (r *repo) List(ctx context.Context, availableOnly bool) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products`
	if availableOnly {
		q += ` WHERE available`
	}
	q += ` ORDER BY code`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.Available, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, id string, price decimal.Decimal, available bool) error {
	const q = `UPDATE products SET price = $2, available = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, price, available)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) FirstByCodePrefix(ctx context.Context, prefix string) (*model.Product, error) {
	const q = `
SELECT ` + productCols + `
FROM products
WHERE available AND code LIKE upper($1) || '%'
ORDER BY code
LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, prefix))
}

func (r *repo) FirstAvailable(ctx context.Context) (*model.Product, error) {
	const q = `
SELECT ` + productCols + `
FROM products
WHERE available
ORDER BY code
LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q))
}
