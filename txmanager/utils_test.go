package txmanager

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDelay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Duration(0), randomDelay(0, 0))
	assert.Equal(t, 2*time.Second, randomDelay(2*time.Second, 2*time.Second))
	assert.Equal(t, 2*time.Second, randomDelay(2*time.Second, time.Second))

	min, max := 100*time.Millisecond, 300*time.Millisecond
	for i := 0; i < 100; i++ {
		d := randomDelay(min, max)
		require.True(t, d >= min && d <= max, "delay %s out of range", d)
		require.Zero(t, d%time.Millisecond)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	assert.True(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepContext(ctx, time.Hour))
	assert.False(t, sleepContext(ctx, 0))
}

func TestApplyMultiplier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		estimate   uint64
		multiplier *big.Rat
		expected   uint64
	}{
		{"identity", 21000, big.NewRat(1, 1), 21000},
		{"exact product", 21000, big.NewRat(105, 100), 22050},
		{"rounds up", 21001, big.NewRat(105, 100), 22052},
		{"rounds up a tiny remainder", 3, big.NewRat(1, 2), 2},
		{"zero estimate", 0, big.NewRat(105, 100), 0},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			gas, err := applyMultiplier(test.estimate, test.multiplier)
			require.NoError(t, err)
			assert.Equal(t, test.expected, gas)
		})
	}

	_, err := applyMultiplier(^uint64(0), big.NewRat(2, 1))
	require.Error(t, err)
}
