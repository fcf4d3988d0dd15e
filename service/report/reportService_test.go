package reportsvc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	reportsvc "github.com/vhreisswitz/trabalho-cantina-sub000/service/report"
)

type repoMock struct {
	rows []reportsvc.SalesRow
	got  [2]time.Time
}

func (m *repoMock) SalesByProduct(_ context.Context, from, to time.Time) ([]reportsvc.SalesRow, error) {
	m.got = [2]time.Time{from, to}
	return m.rows, nil
}

func TestSales_RejectsEmptyRange(t *testing.T) {
	s := reportsvc.New(&repoMock{})
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.Sales(context.Background(), day, day); !errors.Is(err, reportsvc.ErrBadRange) {
		t.Fatalf("expected ErrBadRange, got %v", err)
	}
	if _, err := s.Sales(context.Background(), day.AddDate(0, 0, 1), day); !errors.Is(err, reportsvc.ErrBadRange) {
		t.Fatalf("expected ErrBadRange for inverted range, got %v", err)
	}
}

func TestSales_EmptyResultIsNotNil(t *testing.T) {
	m := &repoMock{}
	s := reportsvc.New(m)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := s.Sales(context.Background(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty slice, got %#v", rows)
	}
	if m.got[0] != from || m.got[1] != to {
		t.Fatalf("range not passed through: %v", m.got)
	}
}
