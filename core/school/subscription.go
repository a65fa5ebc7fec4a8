package school

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"
)

// SubscriptionStatus is derived from a School's raw subscription fields and an
// instant. It is never persisted and never cached: "now" moves continuously
// and a stale Active=true must not grant access past expiry, so callers
// recompute it on every display and every access decision.
type SubscriptionStatus struct {
	Active            bool         `json:"active"`
	SubscriptionStart null.Time    `json:"subscription_start"`
	SubscriptionEnd   null.Time    `json:"subscription_end"`
	DaysRemaining     int          `json:"days_remaining"`
	NeedsPayment      bool         `json:"needs_payment"`
	Amount            float64      `json:"subscription_amount"`
}

// ComputeSubscriptionStatus maps a School and the current instant to its
// SubscriptionStatus.
//
// Active requires the manual flag AND a subscription end strictly in the
// future; a null end date is never active (no open-ended subscriptions).
// NeedsPayment holds whenever the tenant is not effectively active, which
// includes the expiry instant itself (end <= now). Absent or null inputs
// degrade to the inactive/needs-payment/zero-remaining state; this function
// cannot fail, since every access decision needs an answer.
func ComputeSubscriptionStatus(sch School, now time.Time) SubscriptionStatus {
	st := SubscriptionStatus{
		SubscriptionStart: sch.SubscriptionStart,
		SubscriptionEnd:   sch.SubscriptionEnd,
	}
	if sch.PaymentAmount.Valid {
		st.Amount = sch.PaymentAmount.Float64
	}

	hasEnd := sch.SubscriptionEnd.Valid
	end := sch.SubscriptionEnd.Time

	st.Active = sch.Active && hasEnd && end.After(now)
	st.NeedsPayment = !sch.Active || !hasEnd || !end.After(now)

	if hasEnd {
		if days := int(math.Ceil(end.Sub(now).Hours() / 24)); days > 0 {
			st.DaysRemaining = days
		}
	}
	return st
}
