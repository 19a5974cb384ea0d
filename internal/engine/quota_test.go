package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaGuard_Anonymous(t *testing.T) {
	q := NewQuotaGuard(AnonymousMealCap)

	for count := 0; count < AnonymousMealCap; count++ {
		assert.True(t, q.CanLog(false, count), "count %d should be allowed", count)
		assert.Equal(t, AnonymousMealCap-count, q.Remaining(false, count))
	}

	assert.False(t, q.CanLog(false, 5))
	assert.Equal(t, 0, q.Remaining(false, 5))
}

func TestQuotaGuard_NeverNegative(t *testing.T) {
	q := NewQuotaGuard(5)
	assert.Equal(t, 0, q.Remaining(false, 12))
	assert.False(t, q.CanLog(false, 12))
}

func TestQuotaGuard_Authenticated(t *testing.T) {
	q := NewQuotaGuard(5)
	assert.True(t, q.CanLog(true, 0))
	assert.True(t, q.CanLog(true, 500))
	assert.Equal(t, Unlimited, q.Remaining(true, 500))
}

func TestQuotaGuard_Cap(t *testing.T) {
	assert.Equal(t, 5, NewQuotaGuard(AnonymousMealCap).Cap())
	assert.Equal(t, 2, NewQuotaGuard(2).Cap())
}
