package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

func TestPurchaseRepo_Exists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPurchaseRepo(db)
	pid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM purchases WHERE buyer_id=\$1 AND product_id=\$2\)`).
		WithArgs("buyer", pid).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.Exists(context.Background(), "buyer", pid)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPurchaseRepo_Create_OK_and_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPurchaseRepo(db)
	p := &model.Purchase{
		ID: uuid.Must(uuid.NewV4()), BuyerID: "buyer", ProductID: uuid.Must(uuid.NewV4()), SellerID: "seller",
		Amount: decimal.RequireFromString("49.90"), ExternalSessionID: "cs_1", Status: model.PurchaseCompleted,
	}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO purchases`).
		WithArgs(p.ID, "buyer", p.ProductID, "seller", int64(4990), "cs_1", "completed").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	require.NoError(t, r.Create(context.Background(), p))
	require.Equal(t, now, p.CreatedAt)

	mock.ExpectQuery(`INSERT INTO purchases`).
		WithArgs(p.ID, "buyer", p.ProductID, "seller", int64(4990), "cs_1", "completed").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(context.Background(), p), errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepo_ListBySeller_FlagsDeletedProducts(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPurchaseRepo(db)
	live, gone := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	cols := []string{"id", "buyer_id", "seller_id", "product_id", "title", "price", "preview", "deleted", "amount", "created_at"}

	mock.ExpectQuery(`LEFT JOIN products p ON p.id = pu.product_id WHERE pu.seller_id=\$1`).
		WithArgs("seller").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(uuid.Must(uuid.NewV4()), "b1", "seller", live, "Flow", int64(1000), "", false, int64(1000), time.Now()).
			AddRow(uuid.Must(uuid.NewV4()), "b2", "seller", gone, "", int64(0), "", true, int64(750), time.Now()))
	views, err := r.ListBySeller(context.Background(), "seller")
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.False(t, views[0].ProductDeleted)
	require.True(t, views[1].ProductDeleted)
	require.Equal(t, gone.String(), views[1].ProductID)
	require.True(t, decimal.RequireFromString("7.5").Equal(views[1].Amount))
}

func TestPurchaseRepo_ListRecent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPurchaseRepo(db)

	mock.ExpectQuery(`WHERE \(\$1 = '' OR pu.buyer_id=\$1\) ORDER BY pu.created_at DESC LIMIT \$2`).
		WithArgs("", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "buyer_id", "seller_id", "product_id", "title", "price",
			"preview", "deleted", "amount", "created_at"}))
	views, err := r.ListRecent(context.Background(), "", 10)
	require.NoError(t, err)
	require.Empty(t, views)
}
