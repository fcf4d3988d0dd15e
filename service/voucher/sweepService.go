package vouchersvc

import (
	"context"
	"time"

	voucherrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/voucher"
)

type Sweeper interface {
	// ExpireStale flips active vouchers older than the TTL to expired.
	// A zero TTL disables the sweep.
	ExpireStale(ctx context.Context) (int64, error)
}

type sweeper struct {
	r   voucherrepo.Repo
	ttl time.Duration
}

func NewSweeper(r voucherrepo.Repo, ttl time.Duration) Sweeper {
	return &sweeper{r: r, ttl: ttl}
}

func (s *sweeper) ExpireStale(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	return s.r.MarkExpiredBefore(ctx, time.Now().UTC().Add(-s.ttl))
}
