package userrepo

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, id, role string) error

	// Balance access inside a caller-owned transaction.
	GetBalanceForUpdate(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance decimal.Decimal) error
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (name, email, matricula, password_hash, role, balance)
VALUES ($1, lower($2), $3, $4, $5, 0)
RETURNING id, balance, created_at`
	return r.db.QueryRowContext(ctx, q,
		u.Name, u.Email, u.Matricula, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.Balance, &u.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
SELECT id, name, email, matricula, password_hash, role, balance, created_at
FROM users
WHERE id = $1`
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Matricula, &u.PasswordHash, &u.Role, &u.Balance, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, name, email, matricula, password_hash, role, balance, created_at
FROM users
WHERE lower(email) = lower($1)`
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.Matricula, &u.PasswordHash, &u.Role, &u.Balance, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) List(ctx context.Context) ([]model.User, error) {
	const q = `
SELECT id, name, email, matricula, role, balance, created_at
FROM users
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Matricula, &u.Role, &u.Balance, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repo) SetRole(ctx context.Context, id, role string) error {
	const q = `UPDATE users SET role = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, role)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) GetBalanceForUpdate(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	const q = `SELECT balance FROM users WHERE id = $1 FOR UPDATE`
	var bal decimal.Decimal
	err := tx.QueryRowContext(ctx, q, userID).Scan(&bal)
	return bal, err
}

func (r *repo) UpdateBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance decimal.Decimal) error {
	const q = `UPDATE users SET balance = $2 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, userID, newBalance)
	return err
}

func (r *repo) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	const q = `SELECT balance FROM users WHERE id = $1`
	var bal decimal.Decimal
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&bal)
	return bal, err
}
