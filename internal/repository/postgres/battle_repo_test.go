package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func expectDebit(mock pgxmock.PgxPoolIface, userID uuid.UUID, amount, balance int64) {
	mock.ExpectQuery(`UPDATE wallets SET coins = coins - \$2`).
		WithArgs(userID, amount).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(balance))
	mock.ExpectExec(`INSERT INTO ledger_entries`).
		WithArgs(pgxmock.AnyArg(), userID, -amount, "battle_entry", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func expectCredit(mock pgxmock.PgxPoolIface, userID uuid.UUID, amount int64, reason model.EntryReason) {
	mock.ExpectQuery(`INSERT INTO wallets \(user_id, coins\)`).
		WithArgs(userID, amount).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(amount))
	mock.ExpectExec(`INSERT INTO ledger_entries`).
		WithArgs(pgxmock.AnyArg(), userID, amount, string(reason), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestBattleRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := openBattle(10)

	mock.ExpectBegin()
	expectDebit(mock, b.Left.OwnerID, 10, 90)
	mock.ExpectExec(`INSERT INTO battles`).
		WithArgs(b.ID, "beat", "trap", int64(10), int64(20),
			b.Left.OwnerID, "lefty", "intro", "s3://a", b.EndsAt, b.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Create(context.Background(), &b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Create_InsufficientFunds(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := openBattle(10)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE wallets SET coins = coins - \$2`).
		WithArgs(b.Left.OwnerID, int64(10)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := r.Create(context.Background(), &b)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Create_InsertFailsRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := openBattle(10)
	insertErr := errors.New("insert failed")

	mock.ExpectBegin()
	expectDebit(mock, b.Left.OwnerID, 10, 90)
	mock.ExpectExec(`INSERT INTO battles`).WillReturnError(insertErr)
	mock.ExpectRollback()

	err := r.Create(context.Background(), &b)
	require.ErrorIs(t, err, insertErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Join_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	joined := matchedBattle(10, 0, 0)
	right := joined.Right.Submission

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET right_owner_id = \$2`).
		WithArgs(joined.ID, right.OwnerID, right.DisplayName, right.TrackName, right.MediaRef, testNow, int64(10)).
		WillReturnRows(battleRows(joined))
	expectDebit(mock, right.OwnerID, 10, 0)
	mock.ExpectCommit()

	got, err := r.Join(context.Background(), joined.ID, right, 10, testNow)
	require.NoError(t, err)
	require.Equal(t, model.BattleMatched, got.Status)
	require.NotNil(t, got.Right)
	require.Equal(t, right.OwnerID, got.Right.OwnerID)
	require.Equal(t, "outro", got.Right.TrackName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Join_DebitFailsRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	joined := matchedBattle(10, 0, 0)
	right := joined.Right.Submission

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET right_owner_id = \$2`).
		WithArgs(joined.ID, right.OwnerID, right.DisplayName, right.TrackName, right.MediaRef, testNow, int64(10)).
		WillReturnRows(battleRows(joined))
	mock.ExpectQuery(`UPDATE wallets SET coins = coins - \$2`).
		WithArgs(right.OwnerID, int64(10)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Join(context.Background(), joined.ID, right, 10, testNow)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Join_LedgerFailsRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	joined := matchedBattle(10, 0, 0)
	right := joined.Right.Submission
	ledgerErr := errors.New("ledger write failed")

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET right_owner_id = \$2`).
		WithArgs(joined.ID, right.OwnerID, right.DisplayName, right.TrackName, right.MediaRef, testNow, int64(10)).
		WillReturnRows(battleRows(joined))
	mock.ExpectQuery(`UPDATE wallets SET coins = coins - \$2`).
		WithArgs(right.OwnerID, int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(int64(0)))
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnError(ledgerErr)
	mock.ExpectRollback()

	_, err := r.Join(context.Background(), joined.ID, right, 10, testNow)
	require.ErrorIs(t, err, ledgerErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Join_Classification(t *testing.T) {
	joiner := model.Submission{OwnerID: uuid.Must(uuid.NewV4()), DisplayName: "j", TrackName: "t", MediaRef: "m"}

	open := openBattle(10)
	mine := openBattle(10)
	mine.Left.OwnerID = joiner.OwnerID
	taken := matchedBattle(10, 0, 0)
	stale := openBattle(10)
	stale.EndsAt = testNow.Add(-time.Second)
	swept := openBattle(10)
	swept.Status = model.BattleResolved
	swept.Winner = model.SideNone

	cases := []struct {
		name   string
		stored *model.Battle
		fee    int64
		want   error
	}{
		{"not found", nil, 10, errs.ErrNotFound},
		{"same user", &mine, 10, errs.ErrSameUser},
		{"already matched", &taken, 10, errs.ErrAlreadyMatched},
		{"expired", &stale, 10, errs.ErrExpired},
		{"resolved unopposed", &swept, 10, errs.ErrExpired},
		{"fee mismatch", &open, 5, errs.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newDB(t)
			defer mock.Close()
			r := NewBattleRepo(db)

			id := uuid.Must(uuid.NewV4())
			if tc.stored != nil {
				id = tc.stored.ID
			}

			mock.ExpectBegin()
			mock.ExpectQuery(`UPDATE battles SET right_owner_id = \$2`).
				WithArgs(id, joiner.OwnerID, joiner.DisplayName, joiner.TrackName, joiner.MediaRef, testNow, tc.fee).
				WillReturnRows(pgxmock.NewRows(battleCols))
			get := mock.ExpectQuery(`FROM battles WHERE id=\$1`).WithArgs(id)
			if tc.stored == nil {
				get.WillReturnRows(pgxmock.NewRows(battleCols))
			} else {
				get.WillReturnRows(battleRows(*tc.stored))
			}
			mock.ExpectRollback()

			_, err := r.Join(context.Background(), id, joiner, tc.fee, testNow)
			require.ErrorIs(t, err, tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBattleRepo_Evaluate_WinnerPaid(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := matchedBattle(10, 3, 1)
	b.Status = model.BattleResolved
	b.Winner = model.SideLeft
	b.ResolvedAt = &testNow

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET status = 'resolved'`).
		WithArgs(b.ID, testNow).
		WillReturnRows(battleRows(b))
	expectCredit(mock, b.Left.OwnerID, 20, model.ReasonBattleReward)
	mock.ExpectCommit()

	got, resolved, err := r.Evaluate(context.Background(), b.ID, testNow)
	require.NoError(t, err)
	require.True(t, resolved)
	require.Equal(t, model.SideLeft, got.Winner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Evaluate_TieRefundsBoth(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := matchedBattle(10, 2, 2)
	b.Status = model.BattleResolved
	b.Winner = model.SideNone
	b.ResolvedAt = &testNow

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET status = 'resolved'`).
		WithArgs(b.ID, testNow).
		WillReturnRows(battleRows(b))
	expectCredit(mock, b.Left.OwnerID, 10, model.ReasonBattleRefund)
	expectCredit(mock, b.Right.OwnerID, 10, model.ReasonBattleRefund)
	mock.ExpectCommit()

	got, resolved, err := r.Evaluate(context.Background(), b.ID, testNow)
	require.NoError(t, err)
	require.True(t, resolved)
	require.Equal(t, model.SideNone, got.Winner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Evaluate_NotDueIsNoop(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := matchedBattle(10, 1, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET status = 'resolved'`).
		WithArgs(b.ID, testNow).
		WillReturnRows(pgxmock.NewRows(battleCols))
	mock.ExpectQuery(`FROM battles WHERE id=\$1`).
		WithArgs(b.ID).
		WillReturnRows(battleRows(b))
	mock.ExpectCommit()

	got, resolved, err := r.Evaluate(context.Background(), b.ID, testNow)
	require.NoError(t, err)
	require.False(t, resolved)
	require.Equal(t, model.BattleMatched, got.Status)
	require.Equal(t, int64(1), got.Left.Votes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Evaluate_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE battles SET status = 'resolved'`).
		WithArgs(id, testNow).
		WillReturnRows(pgxmock.NewRows(battleCols))
	mock.ExpectQuery(`FROM battles WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(battleCols))
	mock.ExpectRollback()

	_, _, err := r.Evaluate(context.Background(), id, testNow)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	b := openBattle(5)
	mock.ExpectQuery(`FROM battles WHERE id=\$1`).WithArgs(b.ID).WillReturnRows(battleRows(b))
	got, err := r.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Nil(t, got.Right)
	require.Equal(t, model.BattleTypeBeat, got.Type)
	require.Equal(t, b.EndsAt, got.EndsAt)

	missing := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`FROM battles WHERE id=\$1`).WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(context.Background(), missing)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	a, b := openBattle(5), matchedBattle(5, 1, 2)

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("open", "", "trap", pgxmock.AnyArg(), 10, 20).
		WillReturnRows(battleRows(a, b))

	got, err := r.List(context.Background(),
		model.BattleFilter{Status: model.BattleOpen, Genre: "trap"}, model.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[1].Right.Votes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBattleRepo_ListDue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBattleRepo(db)

	id1, id2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT id FROM battles WHERE status IN \('open', 'matched'\) AND ends_at <= \$1`).
		WithArgs(testNow, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id1).AddRow(id2))

	got, err := r.ListDue(context.Background(), testNow, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id1, id2}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
