package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong type")
	}
}

func TestRunInTx_Commit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := RunInTx(context.Background(), mock, func(ctx context.Context) error {
		if TxFromContext(ctx) == nil {
			t.Fatal("expected tx in context")
		}
		if Conn(ctx, mock) == Querier(mock) {
			t.Error("expected Conn to prefer the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_RollbackKeepsSentinel(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	sentinel := errors.New("boom")

	err := RunInTx(context.Background(), mock, func(ctx context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_CommitError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
	mock.ExpectRollback()

	err := RunInTx(context.Background(), mock, func(ctx context.Context) error { return nil })
	if err == nil || err.Error() != "commit transaction: serialization failure" {
		t.Fatalf("expected wrapped commit error, got %v", err)
	}
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := RunInTx(context.Background(), mock, func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		return RunInTx(ctx, mock, func(inner context.Context) error {
			if TxFromContext(inner) != outer {
				t.Error("expected nested call to reuse the outer tx")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected a single transaction: %v", err)
	}
}

func TestRunInTxWithOptions_PassesOptions(t *testing.T) {
	mock := newMock(t)
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	mock.ExpectBeginTx(opts)
	mock.ExpectCommit()

	if err := RunInTxWithOptions(context.Background(), mock, opts, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_BeginError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	called := false
	err := RunInTx(context.Background(), mock, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("fn must not run when begin fails")
	}
}

func TestConn_FallsBackWithoutTx(t *testing.T) {
	mock := newMock(t)
	if Conn(context.Background(), mock) != Querier(mock) {
		t.Error("expected fallback querier")
	}
}
