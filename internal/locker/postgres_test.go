package locker

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestPG_TryAcquire_OK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	l := NewPGWithExecutor(mock, "http://self")

	mock.ExpectExec(`INSERT INTO sync_locks`).
		WithArgs("0xabc", "http://self", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := l.TryAcquire(context.Background(), "0xabc")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPG_TryAcquire_AlreadyHeld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	l := NewPGWithExecutor(mock, "http://self")

	mock.ExpectExec(`INSERT INTO sync_locks`).
		WithArgs("0xabc", "http://self", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := l.TryAcquire(context.Background(), "0xabc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPG_Release_Idempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	l := NewPGWithExecutor(mock, "http://self")

	mock.ExpectExec(`DELETE FROM sync_locks WHERE wallet=\$1 AND holder=\$2`).
		WithArgs("0xabc", "http://self").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, l.Release(context.Background(), "0xabc"))
}
