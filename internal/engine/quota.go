package engine

import "math"

// AnonymousMealCap is the lifetime number of meal logs an anonymous
// identity may hold.
const AnonymousMealCap = 5

// Unlimited is the remaining allowance of an authenticated identity.
const Unlimited = math.MaxInt

// QuotaGuard caps the lifetime meal-log count of anonymous identities.
//
// The cap is a lifetime total: it counts every meal log currently held in
// the anonymous store, including ones from past months. Authenticated
// identities are never capped.
//
// QuotaGuard is a pure function of the log count. Exceeding the quota is not
// an error: callers check CanLog before attempting a mutation.
type QuotaGuard struct {
	cap int
}

// NewQuotaGuard creates a guard with the given cap.
func NewQuotaGuard(limit int) QuotaGuard {
	return QuotaGuard{cap: limit}
}

// Cap returns the anonymous cap.
func (q QuotaGuard) Cap() int { return q.cap }

// CanLog reports whether one more meal may be logged.
func (q QuotaGuard) CanLog(authenticated bool, count int) bool {
	return authenticated || count < q.cap
}

// Remaining returns how many meals may still be logged. Authenticated
// identities get Unlimited.
func (q QuotaGuard) Remaining(authenticated bool, count int) int {
	if authenticated {
		return Unlimited
	}
	return max(0, q.cap-count)
}
