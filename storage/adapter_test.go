package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"go.sqlitecoord.dev/core/dberrors"
)

func TestOpenExecuteCloseRoundTrip(t *testing.T) {
	var ctx = context.Background()
	var a = New(Config{Dir: t.TempDir()})
	require.NoError(t, a.Open(ctx))
	defer a.Close()

	res, err := a.Execute(ctx, "CREATE TABLE t (a INTEGER, b TEXT)", nil)
	require.NoError(t, err)
	require.False(t, res.HasRows)
	require.Equal(t, "Rows affected: 0", res.Summary)

	res, err = a.Execute(ctx, "INSERT INTO t VALUES (?, ?)", []Value{Int64(7), Text("hi")})
	require.NoError(t, err)
	require.Equal(t, "Rows affected: 1", res.Summary)

	res, err = a.Execute(ctx, "SELECT a, b FROM t", nil)
	require.NoError(t, err)
	require.True(t, res.HasRows)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "a", res.Rows[0][0].Column)
	require.Equal(t, Int64(7), res.Rows[0][0].Value)
	require.Equal(t, Text("hi"), res.Rows[0][1].Value)
}

func TestExecuteSequentialStatementsDoNotDeadlock(t *testing.T) {
	var ctx = context.Background()
	var a = New(Config{Dir: t.TempDir()})
	require.NoError(t, a.Open(ctx))
	defer a.Close()

	for i := 0; i < 5; i++ {
		_, err := a.Execute(ctx, "CREATE TABLE IF NOT EXISTS t (a INTEGER)", nil)
		require.NoError(t, err)
		_, err = a.Execute(ctx, "INSERT INTO t VALUES (?)", []Value{Int64(int64(i))})
		require.NoError(t, err)
	}

	res, err := a.Execute(ctx, "SELECT COUNT(*) AS n FROM t", nil)
	require.NoError(t, err)
	require.Equal(t, Int64(5), res.Rows[0][0].Value)
}

func TestWipeDropsEverything(t *testing.T) {
	var ctx = context.Background()
	var a = New(Config{Dir: t.TempDir()})
	require.NoError(t, a.Open(ctx))
	defer a.Close()

	_, err := a.Execute(ctx, "CREATE TABLE t (a INTEGER)", nil)
	require.NoError(t, err)
	_, err = a.Execute(ctx, "CREATE VIEW v AS SELECT a FROM t", nil)
	require.NoError(t, err)

	require.NoError(t, a.Wipe(ctx))

	res, err := a.Execute(ctx, "SELECT name FROM sqlite_master", nil)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestSecondAdapterCannotOpenSamePathWhileFirstIsOpen(t *testing.T) {
	var ctx = context.Background()
	var dir = t.TempDir()

	var a1 = New(Config{Dir: dir})
	require.NoError(t, a1.Open(ctx))
	defer a1.Close()

	var a2 = New(Config{Dir: dir})
	err := a2.Open(ctx)
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.StorageUnavailable))
}
