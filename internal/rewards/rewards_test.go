package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStreak(t *testing.T) {
	today := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	t.Run("first checkin starts streak at 1", func(t *testing.T) {
		assert.Equal(t, 1, NextStreak(nil, today, 0))
	})

	t.Run("checkin on consecutive day increments streak", func(t *testing.T) {
		yesterday := today.AddDate(0, 0, -1)
		assert.Equal(t, 6, NextStreak(&yesterday, today, 5))
	})

	t.Run("missed day resets streak to 1", func(t *testing.T) {
		twoDaysAgo := today.AddDate(0, 0, -2)
		assert.Equal(t, 1, NextStreak(&twoDaysAgo, today, 12))
	})

	t.Run("long gap resets streak to 1", func(t *testing.T) {
		lastMonth := today.AddDate(0, -1, 0)
		assert.Equal(t, 1, NextStreak(&lastMonth, today, 30))
	})

	t.Run("time of day does not affect day comparison", func(t *testing.T) {
		lateYesterday := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
		earlyToday := time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
		assert.Equal(t, 4, NextStreak(&lateYesterday, earlyToday, 3))
	})
}

func TestProgressPercent(t *testing.T) {
	t.Run("halfway to threshold", func(t *testing.T) {
		assert.Equal(t, 50, ProgressPercent(2500, 5000))
	})

	t.Run("zero points", func(t *testing.T) {
		assert.Equal(t, 0, ProgressPercent(0, 5000))
	})

	t.Run("caps at 100 when over threshold", func(t *testing.T) {
		assert.Equal(t, 100, ProgressPercent(7500, 5000))
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		assert.Equal(t, 100, ProgressPercent(5000, 5000))
	})

	t.Run("rounds to nearest percent", func(t *testing.T) {
		assert.Equal(t, 33, ProgressPercent(1666, 5000))
		assert.Equal(t, 34, ProgressPercent(1675, 5000))
	})

	t.Run("zero threshold yields zero", func(t *testing.T) {
		assert.Equal(t, 0, ProgressPercent(1000, 0))
	})

	t.Run("negative inputs yield zero", func(t *testing.T) {
		assert.Equal(t, 0, ProgressPercent(-5, 5000))
		assert.Equal(t, 0, ProgressPercent(100, -1))
	})
}
