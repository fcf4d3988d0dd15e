package reportsvc

import (
	"context"
	"errors"
	"time"

	ledgerrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/ledger"
)

var ErrBadRange = errors.New("invalid date range")

type SalesRow = ledgerrepo.SalesRow

type Repo interface {
	SalesByProduct(ctx context.Context, from, to time.Time) ([]SalesRow, error)
}

type Service interface {
	// Sales aggregates completed purchase transactions per product over
	// [from, to).
	Sales(ctx context.Context, from, to time.Time) ([]SalesRow, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Sales(ctx context.Context, from, to time.Time) ([]SalesRow, error) {
	if !to.After(from) {
		return nil, ErrBadRange
	}
	rows, err := s.r.SalesByProduct(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []SalesRow{}
	}
	return rows, nil
}
