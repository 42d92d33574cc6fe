// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/papertrail/metrics"
	"golang.org/x/time/rate"
)

// BudgetConfig bounds how fast the provider may be called.
// A zero rate means unlimited.
type BudgetConfig struct {
	RequestsPerMinute float64
	TokensPerMinute   float64

	// RequestBurst and TokenBurst default to one second's worth of the
	// corresponding rate, and never less than 1.
	RequestBurst int
	TokenBurst   int
}

// Budget is the token bucket shared by every embedding call site.
// It guards requests/min and tokens/min separately; callers block until
// both have capacity.
type Budget struct {
	requests *rate.Limiter
	tokens   *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewBudget creates a Budget from cfg.
func NewBudget(cfg BudgetConfig) *Budget {
	return &Budget{
		requests: newLimiter(cfg.RequestsPerMinute, cfg.RequestBurst),
		tokens:   newLimiter(cfg.TokensPerMinute, cfg.TokenBurst),
	}
}

// Unlimited returns a Budget that never blocks unless paused.
func Unlimited() *Budget {
	return NewBudget(BudgetConfig{})
}

func newLimiter(perMinute float64, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	perSecond := perMinute / 60
	if burst <= 0 {
		burst = max(int(perSecond), 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Wait blocks until one request carrying tokens tokens fits the budget.
// The full token count is charged: counts above the burst are reserved in
// burst-sized pieces and the caller waits for the last one. If ctx ends
// first, the reservations are returned to the budget.
func (b *Budget) Wait(ctx context.Context, tokens int) error {
	start := time.Now()
	defer func() {
		metrics.RateLimitWaitSeconds.Add(time.Since(start).Seconds())
	}()

	if err := b.waitPause(ctx); err != nil {
		return err
	}

	now := time.Now()
	var reservations []*rate.Reservation
	cancel := func(at time.Time) {
		for _, r := range reservations {
			r.CancelAt(at)
		}
	}

	var delay time.Duration
	if tokens > 0 && b.tokens.Limit() != rate.Inf {
		burst := b.tokens.Burst()
		for left := tokens; left > 0; left -= burst {
			r := b.tokens.ReserveN(now, min(left, burst))
			reservations = append(reservations, r)
			if !r.OK() {
				cancel(now)
				return fmt.Errorf("rate budget: cannot reserve %d tokens with burst %d", tokens, burst)
			}
			delay = max(delay, r.DelayFrom(now))
		}
	}

	// The request slot is taken when the tokens are available, so a wait
	// abandoned before then gives it back.
	req := b.requests.ReserveN(now.Add(delay), 1)
	reservations = append(reservations, req)
	if !req.OK() {
		cancel(now)
		return errors.New("rate budget: cannot reserve a request")
	}
	delay = max(delay, req.DelayFrom(now))

	if delay <= 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(now.Add(delay)) {
		cancel(now)
		return fmt.Errorf("rate budget: wait of %s would exceed context deadline: %w", delay, context.DeadlineExceeded)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		cancel(time.Now())
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pause blocks every caller for d, extending any pause already in effect.
// It is applied when the provider answers with a rate-limit error.
func (b *Budget) Pause(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(b.pausedUntil) {
		b.pausedUntil = until
	}
}

// TokenBurst reports the token bucket size, or 0 when tokens are unlimited.
func (b *Budget) TokenBurst() int {
	if b.tokens.Limit() == rate.Inf {
		return 0
	}
	return b.tokens.Burst()
}

func (b *Budget) waitPause(ctx context.Context) error {
	for {
		b.mu.Lock()
		wait := time.Until(b.pausedUntil)
		b.mu.Unlock()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
