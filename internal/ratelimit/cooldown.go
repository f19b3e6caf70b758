// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit enforces a minimum cooldown between successive outbound
// calls of one source adapter. Each adapter owns its own Cooldown; there is
// no global limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so cooldown spacing can be verified without real sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is cancelled.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Cooldown spaces calls at least Delay apart. It is the "last call time plus
// minimum delay" rule expressed as a single-token limiter: the limiter's
// last reservation is the last call time and its refill interval is the
// delay. Safe for concurrent use.
type Cooldown struct {
	delay   time.Duration
	clock   Clock
	limiter *rate.Limiter
}

// New returns a Cooldown with the given minimum delay. A nil clock uses the
// wall clock. A non-positive delay disables waiting.
func New(delay time.Duration, clock Clock) *Cooldown {
	if clock == nil {
		clock = SystemClock{}
	}
	c := &Cooldown{delay: delay, clock: clock}
	if delay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return c
}

// Delay returns the configured minimum delay.
func (c *Cooldown) Delay() time.Duration { return c.delay }

// Clock returns the clock the cooldown reserves against.
func (c *Cooldown) Clock() Clock { return c.clock }

// Wait blocks until the cooldown since the previous call has elapsed and
// marks the current call. If ctx is cancelled while waiting the slot is
// released and ctx.Err() is returned.
func (c *Cooldown) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}

	now := c.clock.Now()
	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("cooldown reservation refused (delay %v)", c.delay)
	}

	wait := r.DelayFrom(now)
	if wait <= 0 {
		return nil
	}
	if err := c.clock.Sleep(ctx, wait); err != nil {
		r.CancelAt(c.clock.Now())
		return err
	}
	return nil
}
