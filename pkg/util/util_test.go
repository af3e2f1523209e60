package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDateTpl(t *testing.T) {
	t.Parallel()
	const ts = int64(1699603200000) // 2023-11-10T08:00:00Z

	assert.Equal(t, "2023-11-10 08:00", FormatDateTpl(ts, "YYYY-MM-DD hh:mm"))
	assert.Equal(t, "10/11/23", FormatDateTpl(ts, "DD/MM/YY"))
	assert.Equal(t, "08:00:00", FormatDateTpl(ts, "hh:mm:ss"))
	assert.Empty(t, FormatDateTpl(0, "YYYY"))
}

func TestParallel_RunsAll(t *testing.T) {
	t.Parallel()
	var sum atomic.Int64
	err := Parallel(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), sum.Load())
}

func TestParallel_FirstErrorWins(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	err := Parallel(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, n int) error {
		if n == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallel_Empty(t *testing.T) {
	t.Parallel()
	called := false
	err := Parallel(context.Background(), nil, 4, func(context.Context, string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
