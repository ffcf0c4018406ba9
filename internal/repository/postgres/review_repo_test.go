package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

var reviewColumns = []string{"id", "product_id", "user_id", "user_name", "kind", "rating", "parent_id",
	"comment", "created_at", "updated_at"}

func TestReviewRepo_UpsertReview_ReturnsStoredID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReviewRepo(db)
	rating := 4
	rv := &model.Review{ID: uuid.Must(uuid.NewV4()), ProductID: uuid.Must(uuid.NewV4()), UserID: "u",
		UserName: "Ada", Kind: model.KindReview, Rating: &rating, Comment: "nice"}
	stored := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`ON CONFLICT \(product_id, user_id\) WHERE kind = 'review' DO UPDATE`).
		WithArgs(rv.ID, rv.ProductID, "u", "Ada", rv.Rating, "nice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(stored, now, now))
	require.NoError(t, r.UpsertReview(context.Background(), rv))
	require.Equal(t, stored, rv.ID)
}

func TestReviewRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReviewRepo(db)
	id, pid, parent := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`FROM reviews WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(reviewColumns).
			AddRow(id, pid, "seller", "Seller", "reply", (*int)(nil), &parent, "thanks", now, now))
	rv, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, model.KindReply, rv.Kind)
	require.Nil(t, rv.Rating)
	require.Equal(t, parent, *rv.ParentID)

	mock.ExpectQuery(`FROM reviews WHERE id=\$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReviewRepo_Stats_RoundsAndResets(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReviewRepo(db)
	pid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT COALESCE\(AVG\(rating\)::float8, 0\), COUNT\(\*\) FROM reviews WHERE product_id=\$1 AND kind='review'`).
		WithArgs(pid).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(3.6666666, 3))
	st, err := r.Stats(context.Background(), pid)
	require.NoError(t, err)
	require.Equal(t, model.RatingStats{Average: 3.7, Count: 3}, st)

	mock.ExpectQuery(`FROM reviews WHERE product_id=\$1 AND kind='review'`).
		WithArgs(pid).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(0.0, 0))
	st, err = r.Stats(context.Background(), pid)
	require.NoError(t, err)
	require.Equal(t, model.RatingStats{}, st)
}

func TestReviewRepo_DeleteAndUpdate_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReviewRepo(db)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM reviews WHERE id=\$1`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(context.Background(), id), errs.ErrNotFound)

	mock.ExpectExec(`UPDATE reviews SET comment=\$2`).WithArgs(id, "edited").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateComment(context.Background(), id, "edited"))
}

func TestReviewRepo_ListByProduct(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReviewRepo(db)
	pid := uuid.Must(uuid.NewV4())
	rating := 5
	now := time.Now()

	mock.ExpectQuery(`FROM reviews WHERE product_id=\$1 ORDER BY created_at ASC`).
		WithArgs(pid).
		WillReturnRows(pgxmock.NewRows(reviewColumns).
			AddRow(uuid.Must(uuid.NewV4()), pid, "u1", "A", "review", &rating, (*uuid.UUID)(nil), "great", now, now).
			AddRow(uuid.Must(uuid.NewV4()), pid, "u2", "B", "question", (*int)(nil), (*uuid.UUID)(nil), "json?", now, now))
	list, err := r.ListByProduct(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 5, *list[0].Rating)
	require.Equal(t, model.KindQuestion, list[1].Kind)
}
