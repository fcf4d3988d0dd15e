// service/voucher/voucher_service_test.go
package vouchersvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
	voucherrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/voucher"
)

type voucherRepoMock struct {
	insertFn       func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error
	byCodeUpdFn    func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error)
	activeByUPCFn  func(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error)
	activeByUserFn func(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error)
	markRedeemedFn func(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error
	listByUserFn   func(ctx context.Context, userID string) ([]model.Voucher, error)
	markExpiredFn  func(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ voucherrepo.Repo = (*voucherRepoMock)(nil)

func (m *voucherRepoMock) Insert(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
	return m.insertFn(ctx, tx, v)
}
func (m *voucherRepoMock) ByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
	return m.byCodeUpdFn(ctx, tx, code)
}
func (m *voucherRepoMock) ActiveByUserProductCategory(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
	return m.activeByUPCFn(ctx, userID, productID, cat)
}
func (m *voucherRepoMock) ActiveByUserCategory(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error) {
	return m.activeByUserFn(ctx, userID, cat)
}
func (m *voucherRepoMock) MarkRedeemed(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error {
	return m.markRedeemedFn(ctx, tx, voucherID, at)
}
func (m *voucherRepoMock) ListByUser(ctx context.Context, userID string) ([]model.Voucher, error) {
	return m.listByUserFn(ctx, userID)
}
func (m *voucherRepoMock) MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.markExpiredFn(ctx, cutoff)
}

type productRepoMock struct {
	byIDFn       func(ctx context.Context, id string) (*model.Product, error)
	byPrefixFn   func(ctx context.Context, prefix string) (*model.Product, error)
	firstAvailFn func(ctx context.Context) (*model.Product, error)
}

func (m *productRepoMock) ByID(ctx context.Context, id string) (*model.Product, error) {
	return m.byIDFn(ctx, id)
}
func (m *productRepoMock) FirstByCodePrefix(ctx context.Context, prefix string) (*model.Product, error) {
	return m.byPrefixFn(ctx, prefix)
}
func (m *productRepoMock) FirstAvailable(ctx context.Context) (*model.Product, error) {
	return m.firstAvailFn(ctx)
}

type userRepoMock struct {
	balance decimal.Decimal
	updated *decimal.Decimal
}

func (m *userRepoMock) GetBalanceForUpdate(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	return m.balance, nil
}
func (m *userRepoMock) UpdateBalance(ctx context.Context, tx *sql.Tx, userID string, newBalance decimal.Decimal) error {
	m.updated = &newBalance
	return nil
}

type ledgerRepoMock struct {
	rows []model.Transaction
}

func (m *ledgerRepoMock) Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	m.rows = append(m.rows, *t)
	return nil
}

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func lanche() *model.Product {
	return &model.Product{
		ID:        "p-1",
		Name:      "Coxinha",
		Code:      "CXN01",
		Price:     decimal.RequireFromString("6.00"),
		Available: true,
	}
}

func TestIssueFree_Idempotent(t *testing.T) {
	db, mock := newTestDB(t)
	existing := &model.Voucher{ID: "v-1", Code: "TKT-FREE-X", Status: model.VoucherActive}
	vr := &voucherRepoMock{
		activeByUPCFn: func(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
			require.Equal(t, model.VoucherFreeFirstUse, cat)
			return existing, nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	v1, err := s.IssueFree(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	v2, err := s.IssueFree(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	require.Equal(t, v1.ID, v2.ID)
	require.NoError(t, mock.ExpectationsWereMet()) // no tx opened
}

func TestIssueFree_CreatesVoucher(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var inserted *model.Voucher
	vr := &voucherRepoMock{
		activeByUPCFn: func(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
			return nil, sql.ErrNoRows
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
			v.ID = "v-new"
			inserted = v
			return nil
		},
	}
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return lanche(), nil
	}}
	s := New(db, vr, pr, &userRepoMock{}, &ledgerRepoMock{})

	v, err := s.IssueFree(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	require.NotNil(t, inserted)
	require.True(t, strings.HasPrefix(v.Code, "TKT-FREE-U-1-P-1-"))
	require.Equal(t, v.Code, strings.ToUpper(v.Code))
	require.True(t, v.Free)
	require.Equal(t, model.VoucherFreeFirstUse, v.Category)
	require.Equal(t, model.VoucherActive, v.Status)

	var payload model.QRPayload
	require.NoError(t, json.Unmarshal([]byte(v.QRPayload), &payload))
	require.Equal(t, v.Code, payload.Code)
	require.Equal(t, "Coxinha", payload.ProductName)
	require.True(t, payload.Value.Equal(decimal.RequireFromString("6.00")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueFree_ProductMissing(t *testing.T) {
	db, _ := newTestDB(t)
	vr := &voucherRepoMock{
		activeByUPCFn: func(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
			return nil, sql.ErrNoRows
		},
	}
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return nil, sql.ErrNoRows
	}}
	s := New(db, vr, pr, &userRepoMock{}, &ledgerRepoMock{})

	_, err := s.IssueFree(context.Background(), "u-1", "missing")
	require.Equal(t, ErrProductNotFound, Code(err))
}

func TestIssueFree_LostRaceReturnsWinner(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	winner := &model.Voucher{ID: "v-winner", Status: model.VoucherActive}
	calls := 0
	vr := &voucherRepoMock{
		activeByUPCFn: func(ctx context.Context, userID, productID string, cat model.VoucherCategory) (*model.Voucher, error) {
			calls++
			if calls == 1 {
				return nil, sql.ErrNoRows
			}
			return winner, nil
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
			return voucherrepo.ErrDuplicateActive
		},
	}
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return lanche(), nil
	}}
	s := New(db, vr, pr, &userRepoMock{}, &ledgerRepoMock{})

	v, err := s.IssueFree(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	require.Equal(t, "v-winner", v.ID)
}

func TestIssueWelcome_PrefersWelcomeProduct(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	welcome := &model.Product{ID: "p-w", Name: "Suco", Code: "WELCOME01",
		Price: decimal.RequireFromString("3.50"), Available: true}
	vr := &voucherRepoMock{
		activeByUserFn: func(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error) {
			return nil, sql.ErrNoRows
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
			v.ID = "v-w"
			return nil
		},
	}
	pr := &productRepoMock{
		byPrefixFn: func(ctx context.Context, prefix string) (*model.Product, error) {
			require.Equal(t, "WELCOME", prefix)
			return welcome, nil
		},
	}
	s := New(db, vr, pr, &userRepoMock{}, &ledgerRepoMock{})

	v, err := s.IssueWelcome(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, model.VoucherWelcome, v.Category)
	require.True(t, strings.HasPrefix(v.Code, "TKT-WELCOME-"))
	require.Equal(t, "p-w", v.ProductID)
}

func TestIssueWelcome_FallsBackToAnyProduct(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	vr := &voucherRepoMock{
		activeByUserFn: func(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error) {
			return nil, sql.ErrNoRows
		},
		insertFn: func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error { return nil },
	}
	pr := &productRepoMock{
		byPrefixFn: func(ctx context.Context, prefix string) (*model.Product, error) {
			return nil, sql.ErrNoRows
		},
		firstAvailFn: func(ctx context.Context) (*model.Product, error) {
			return lanche(), nil
		},
	}
	s := New(db, vr, pr, &userRepoMock{}, &ledgerRepoMock{})

	v, err := s.IssueWelcome(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "p-1", v.ProductID)
}

func TestIssueWelcome_Idempotent(t *testing.T) {
	db, _ := newTestDB(t)
	existing := &model.Voucher{ID: "v-w", Category: model.VoucherWelcome, Status: model.VoucherActive}
	vr := &voucherRepoMock{
		activeByUserFn: func(ctx context.Context, userID string, cat model.VoucherCategory) (*model.Voucher, error) {
			return existing, nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	v, err := s.IssueWelcome(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "v-w", v.ID)
}

func TestPurchase_DebitsExactlyAndRecords(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ur := &userRepoMock{balance: decimal.RequireFromString("10.00")}
	lr := &ledgerRepoMock{}
	vr := &voucherRepoMock{
		insertFn: func(ctx context.Context, tx *sql.Tx, v *model.Voucher) error {
			v.ID = "v-paid"
			return nil
		},
	}
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return lanche(), nil
	}}
	s := New(db, vr, pr, ur, lr)

	out, err := s.Purchase(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	require.True(t, out.NewBalance.Equal(decimal.RequireFromString("4.00")))
	require.NotNil(t, ur.updated)
	require.True(t, ur.updated.Equal(decimal.RequireFromString("4.00")))

	require.Len(t, lr.rows, 1)
	require.Equal(t, model.TxVoucherPurchase, lr.rows[0].Kind)
	require.True(t, lr.rows[0].Amount.Equal(decimal.RequireFromString("6.00")))
	require.Equal(t, "purchase: Coxinha", lr.rows[0].Description)

	require.Equal(t, model.VoucherPaid, out.Voucher.Category)
	require.False(t, out.Voucher.Free)
	require.True(t, strings.HasPrefix(out.Voucher.Code, "TKT-PAID-"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	ur := &userRepoMock{balance: decimal.RequireFromString("4.00")}
	lr := &ledgerRepoMock{}
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return lanche(), nil
	}}
	s := New(db, &voucherRepoMock{}, pr, ur, lr)

	_, err := s.Purchase(context.Background(), "u-1", "p-1")
	require.Equal(t, ErrInsufficientFunds, Code(err))
	require.Nil(t, ur.updated)
	require.Empty(t, lr.rows)
}

func TestPurchase_ProductMissing(t *testing.T) {
	db, _ := newTestDB(t)
	pr := &productRepoMock{byIDFn: func(ctx context.Context, id string) (*model.Product, error) {
		return nil, sql.ErrNoRows
	}}
	s := New(db, &voucherRepoMock{}, pr, &userRepoMock{}, &ledgerRepoMock{})

	_, err := s.Purchase(context.Background(), "u-1", "missing")
	require.Equal(t, ErrProductNotFound, Code(err))
}

func activeVoucher(t *testing.T) *model.Voucher {
	t.Helper()
	p := lanche()
	payload := model.QRPayload{
		Code: "TKT-FREE-U-1-P-1-123", ProductID: p.ID, ProductName: p.Name,
		ProductCode: p.Code, UserID: "u-1", IssuedAt: time.Now().UTC(),
		Value: p.Price, Category: model.VoucherFreeFirstUse,
	}
	enc, err := payload.Encode()
	require.NoError(t, err)
	return &model.Voucher{
		ID: "v-1", Code: payload.Code, UserID: "u-1", ProductID: p.ID,
		Category: model.VoucherFreeFirstUse, Free: true,
		Status: model.VoucherActive, QRPayload: enc,
	}
}

func TestRedeem_ByCode(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	v := activeVoucher(t)
	redeemed := false
	vr := &voucherRepoMock{
		byCodeUpdFn: func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
			require.Equal(t, v.Code, code)
			return v, nil
		},
		markRedeemedFn: func(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error {
			require.Equal(t, "v-1", voucherID)
			redeemed = true
			return nil
		},
	}
	lr := &ledgerRepoMock{}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, lr)

	res, err := s.Redeem(context.Background(), v.Code)
	require.NoError(t, err)
	require.True(t, redeemed)
	require.Equal(t, "Coxinha", res.ProductName)

	require.Len(t, lr.rows, 1)
	require.Equal(t, model.TxVoucherRedeem, lr.rows[0].Kind)
	require.True(t, lr.rows[0].Amount.IsZero())
	require.Equal(t, "usage: Coxinha", lr.rows[0].Description)
	require.Equal(t, "u-1", lr.rows[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_QRPayloadRoundTrip(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	v := activeVoucher(t)
	vr := &voucherRepoMock{
		byCodeUpdFn: func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
			require.Equal(t, v.Code, code) // payload resolves to the same code
			return v, nil
		},
		markRedeemedFn: func(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error {
			return nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	res, err := s.Redeem(context.Background(), v.QRPayload)
	require.NoError(t, err)
	require.Equal(t, v.Code, res.Code)
}

func TestRedeem_SecondCallFails(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	v := activeVoucher(t)
	v.Status = model.VoucherRedeemed
	at := time.Now().UTC().Add(-time.Hour)
	v.RedeemedAt = &at

	vr := &voucherRepoMock{
		byCodeUpdFn: func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
			return v, nil
		},
		markRedeemedFn: func(ctx context.Context, tx *sql.Tx, voucherID string, at time.Time) error {
			t.Fatal("must not flip an already redeemed voucher")
			return nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	_, err := s.Redeem(context.Background(), v.Code)
	require.Equal(t, ErrAlreadyRedeemed, Code(err))
	require.Equal(t, at, *v.RedeemedAt) // first redemption timestamp untouched
}

func TestRedeem_Expired(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	v := activeVoucher(t)
	v.Status = model.VoucherExpired
	vr := &voucherRepoMock{
		byCodeUpdFn: func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
			return v, nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	_, err := s.Redeem(context.Background(), v.Code)
	require.Equal(t, ErrVoucherExpired, Code(err))
}

func TestRedeem_NotFoundAndMalformed(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	vr := &voucherRepoMock{
		byCodeUpdFn: func(ctx context.Context, tx *sql.Tx, code string) (*model.Voucher, error) {
			return nil, sql.ErrNoRows
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	_, err := s.Redeem(context.Background(), "TKT-NOPE")
	require.Equal(t, ErrVoucherNotFound, Code(err))

	_, err = s.Redeem(context.Background(), "   ")
	require.Equal(t, ErrMalformedPayload, Code(err))

	_, err = s.Redeem(context.Background(), `{"no_code": true}`)
	require.Equal(t, ErrMalformedPayload, Code(err))
}

func TestListForUser_NeverNil(t *testing.T) {
	db, _ := newTestDB(t)
	vr := &voucherRepoMock{
		listByUserFn: func(ctx context.Context, userID string) ([]model.Voucher, error) {
			return nil, nil
		},
	}
	s := New(db, vr, &productRepoMock{}, &userRepoMock{}, &ledgerRepoMock{})

	out, err := s.ListForUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestSweeper_DisabledWithZeroTTL(t *testing.T) {
	vr := &voucherRepoMock{
		markExpiredFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			t.Fatal("sweep must not run with zero ttl")
			return 0, nil
		},
	}
	n, err := NewSweeper(vr, 0).ExpireStale(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSweeper_UsesTTLCutoff(t *testing.T) {
	var got time.Time
	vr := &voucherRepoMock{
		markExpiredFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			got = cutoff
			return 3, nil
		},
	}
	n, err := NewSweeper(vr, 48*time.Hour).ExpireStale(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.WithinDuration(t, time.Now().UTC().Add(-48*time.Hour), got, 5*time.Second)
}
