package catalogsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
)

var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrProductNotFound = errors.New("product not found")
	ErrCodeTaken       = errors.New("product code already in use")
)

type Repo interface {
	Create(ctx context.Context, p *model.Product) error
	ByID(ctx context.Context, id string) (*model.Product, error)
	ByCode(ctx context.Context, code string) (*model.Product, error)
	List(ctx context.Context, availableOnly bool) ([]model.Product, error)
	Update(ctx context.Context, id string, price decimal.Decimal, available bool) error
}

type Service interface {
	Create(ctx context.Context, name, code string, price decimal.Decimal) (*model.Product, error)
	Update(ctx context.Context, id string, price decimal.Decimal, available bool) error
	List(ctx context.Context, includeUnavailable bool) ([]model.Product, error)
	Detail(ctx context.Context, id string) (*model.Product, error)
	ByCode(ctx context.Context, code string) (*model.Product, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, name, code string, price decimal.Decimal) (*model.Product, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(code) == "" || price.IsNegative() {
		return nil, ErrInvalidPayload
	}
	p := &model.Product{
		Name:      strings.TrimSpace(name),
		Code:      strings.ToUpper(strings.TrimSpace(code)),
		Price:     price,
		Available: true,
	}
	if err := s.r.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id string, price decimal.Decimal, available bool) error {
	if price.IsNegative() {
		return ErrInvalidPayload
	}
	err := s.r.Update(ctx, id, price, available)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	return err
}

func (s *service) List(ctx context.Context, includeUnavailable bool) ([]model.Product, error) {
	return s.r.List(ctx, !includeUnavailable)
}

func (s *service) Detail(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.r.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *service) ByCode(ctx context.Context, code string) (*model.Product, error) {
	p, err := s.r.ByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}
