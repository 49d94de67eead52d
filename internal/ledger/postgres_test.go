package ledger

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestPG_RecordSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	l := NewPGWithExecutor(mock)

	mock.ExpectExec(`INSERT INTO sync_outcomes`).
		WithArgs("0xabc").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, l.RecordSuccess(context.Background(), "0xabc"))
}

func TestPG_RecordFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	l := NewPGWithExecutor(mock)

	mock.ExpectExec(`INSERT INTO sync_outcomes`).
		WithArgs("0xabc").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, l.RecordFailure(context.Background(), "0xabc"))
}
