// ABOUTME: Resend cooldown for OTP codes backed by a token-bucket limiter
// ABOUTME: One token per period, burst of one; spending it starts the countdown

package flow

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OTPResendInterval is how long the user waits between OTP sends
const OTPResendInterval = 120 * time.Second

type Cooldown struct {
	mu      sync.Mutex
	period  time.Duration
	limiter *rate.Limiter
	started time.Time
	now     func() time.Time
}

// NewCooldown returns a cooldown that is ready immediately.
func NewCooldown(period time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		period:  period,
		limiter: rate.NewLimiter(rate.Every(period), 1),
		now:     now,
	}
}

// Start begins a full countdown from now.
func (c *Cooldown) Start() {
	c.StartAt(c.now())
}

// StartAt begins the countdown from t, e.g. a send recorded by an earlier process.
func (c *Cooldown) StartAt(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Every(c.period), 1)
	c.limiter.AllowN(t, 1)
	c.started = t
}

// Started is when the current countdown began, zero if never started.
func (c *Cooldown) Started() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Remaining is the time left before Ready, rounded up to the millisecond.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	tokens := c.limiter.TokensAt(c.now())
	if tokens >= 1 {
		return 0
	}
	left := time.Duration((1 - tokens) * float64(c.period))
	return left.Round(time.Millisecond)
}

func (c *Cooldown) Ready() bool {
	return c.Remaining() == 0
}

// Release ends the countdown early, as after a failed send.
func (c *Cooldown) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Every(c.period), 1)
	c.started = time.Time{}
}

// FormatCountdown renders d as m:ss, rounding partial seconds up.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(math.Ceil(d.Seconds()))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// CooldownError is returned when a resend is attempted too early.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("Please wait %s before requesting a new code", FormatCountdown(e.Remaining))
}
