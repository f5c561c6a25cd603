// ABOUTME: Tests for the OTP resend cooldown

package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCooldown(OTPResendInterval, func() time.Time { return now })

	assert.True(t, c.Ready(), "ready before first start")

	c.Start()
	assert.False(t, c.Ready())
	assert.Equal(t, 120*time.Second, c.Remaining())

	now = now.Add(30 * time.Second)
	assert.Equal(t, 90*time.Second, c.Remaining())

	now = now.Add(90 * time.Second)
	assert.True(t, c.Ready())
	assert.Equal(t, time.Duration(0), c.Remaining())

	c.Start()
	c.Release()
	assert.True(t, c.Ready())
	assert.True(t, c.Started().IsZero())
}

func TestCooldown_StartAtPast(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 2, 0, 0, time.UTC)
	c := NewCooldown(OTPResendInterval, func() time.Time { return now })

	c.StartAt(now.Add(-100 * time.Second))
	assert.Equal(t, 20*time.Second, c.Remaining())
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "2:00", FormatCountdown(120*time.Second))
	assert.Equal(t, "1:05", FormatCountdown(64500*time.Millisecond))
	assert.Equal(t, "0:00", FormatCountdown(-time.Second))
	assert.Equal(t, "0:01", FormatCountdown(time.Millisecond))
}

func TestCooldownError(t *testing.T) {
	err := &CooldownError{Remaining: 75 * time.Second}
	assert.Equal(t, "Please wait 1:15 before requesting a new code", err.Error())
}
