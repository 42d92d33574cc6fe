package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlimited_DoesNotBlock(t *testing.T) {
	budget := Unlimited()
	assert.Equal(t, 0, budget.TokenBurst())

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, budget.Wait(context.Background(), 100000))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestBudget_DefaultBurst(t *testing.T) {
	budget := NewBudget(BudgetConfig{TokensPerMinute: 60000})
	assert.Equal(t, 1000, budget.TokenBurst())

	budget = NewBudget(BudgetConfig{TokensPerMinute: 30})
	assert.Equal(t, 1, budget.TokenBurst())
}

func TestBudget_OversizedRequestsAreFullyCharged(t *testing.T) {
	// 1000 tokens/s with a bucket of 100: each 500-token request must wait
	// for the whole amount, not just one burst.
	budget := NewBudget(BudgetConfig{TokensPerMinute: 60000, TokenBurst: 100})
	ctx := context.Background()

	start := time.Now()
	sent := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, budget.Wait(ctx, 500))
		sent += 500
		elapsed := time.Since(start).Seconds()
		ceiling := 100 + 1000*elapsed + 20
		assert.LessOrEqual(t, float64(sent), ceiling, "request %d sent %d tokens after %.3fs", i, sent, elapsed)
	}
	assert.GreaterOrEqual(t, time.Since(start), 1300*time.Millisecond)
}

func TestBudget_DeadlineShorterThanWait(t *testing.T) {
	budget := NewBudget(BudgetConfig{TokensPerMinute: 60, TokenBurst: 1})
	require.NoError(t, budget.Wait(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := budget.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBudget_AbandonedWaitReturnsRequestSlot(t *testing.T) {
	// Two request slots, then one per second; tokens refill every 100ms.
	budget := NewBudget(BudgetConfig{
		RequestsPerMinute: 60, RequestBurst: 2,
		TokensPerMinute: 600, TokenBurst: 1,
	})
	require.NoError(t, budget.Wait(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, budget.Wait(ctx, 1))

	// The second slot was not spent by the abandoned wait.
	start := time.Now()
	require.NoError(t, budget.Wait(context.Background(), 1))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestBudget_CancelDuringWait(t *testing.T) {
	budget := NewBudget(BudgetConfig{TokensPerMinute: 60, TokenBurst: 1})
	require.NoError(t, budget.Wait(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := budget.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBudget_Pause(t *testing.T) {
	budget := Unlimited()
	budget.Pause(40 * time.Millisecond)

	start := time.Now()
	require.NoError(t, budget.Wait(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestBudget_PauseHonorsContext(t *testing.T) {
	budget := Unlimited()
	budget.Pause(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := budget.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBudget_PauseNeverShortens(t *testing.T) {
	budget := Unlimited()
	budget.Pause(time.Minute)
	budget.Pause(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, budget.Wait(ctx, 1))
}
