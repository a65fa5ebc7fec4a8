package school

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeSubscriptionStatus(t *testing.T) {
	now := date(2025, time.January, 1)

	tests := []struct {
		name             string
		sch              School
		wantActive       bool
		wantNeedsPayment bool
		wantDays         int
		wantAmount       float64
	}{
		{
			name:             "active with future end",
			sch:              School{Active: true, SubscriptionEnd: null.TimeFrom(date(2025, time.January, 31)), PaymentAmount: null.Float64From(150)},
			wantActive:       true,
			wantNeedsPayment: false,
			wantDays:         30,
			wantAmount:       150,
		},
		{
			name:             "active with far future end",
			sch:              School{Active: true, SubscriptionEnd: null.TimeFrom(date(2099, time.January, 1))},
			wantActive:       true,
			wantNeedsPayment: false,
			wantDays:         27028,
		},
		{
			name:             "active but expired",
			sch:              School{Active: true, SubscriptionEnd: null.TimeFrom(date(2020, time.January, 1))},
			wantActive:       false,
			wantNeedsPayment: true,
			wantDays:         0,
		},
		{
			name:             "inactive with no dates",
			sch:              School{Active: false},
			wantActive:       false,
			wantNeedsPayment: true,
			wantDays:         0,
		},
		{
			name:             "no open-ended subscriptions",
			sch:              School{Active: true}, // end date never set
			wantActive:       false,
			wantNeedsPayment: true,
			wantDays:         0,
		},
		{
			name:             "manually deactivated with future end",
			sch:              School{Active: false, SubscriptionEnd: null.TimeFrom(date(2025, time.February, 1)), PaymentAmount: null.Float64From(99.99)},
			wantActive:       false,
			wantNeedsPayment: true,
			wantDays:         31,
			wantAmount:       99.99,
		},
		{
			name:             "expiry instant itself",
			sch:              School{Active: true, SubscriptionEnd: null.TimeFrom(now)},
			wantActive:       false,
			wantNeedsPayment: true,
			wantDays:         0,
		},
		{
			name:             "partial day remaining rounds up",
			sch:              School{Active: true, SubscriptionEnd: null.TimeFrom(now.Add(90 * time.Minute))},
			wantActive:       true,
			wantNeedsPayment: false,
			wantDays:         1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ComputeSubscriptionStatus(tt.sch, now)
			if st.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", st.Active, tt.wantActive)
			}
			if st.NeedsPayment != tt.wantNeedsPayment {
				t.Errorf("NeedsPayment = %v, want %v", st.NeedsPayment, tt.wantNeedsPayment)
			}
			if st.DaysRemaining != tt.wantDays {
				t.Errorf("DaysRemaining = %v, want %v", st.DaysRemaining, tt.wantDays)
			}
			if st.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", st.Amount, tt.wantAmount)
			}
			// pass-through fields
			if st.SubscriptionEnd != tt.sch.SubscriptionEnd {
				t.Errorf("SubscriptionEnd = %v, want %v", st.SubscriptionEnd, tt.sch.SubscriptionEnd)
			}
		})
	}
}

// NeedsPayment must hold whenever the school is not effectively active,
// whatever combination of raw fields produced that state.
func TestComputeSubscriptionStatus_needsPaymentSuperset(t *testing.T) {
	now := date(2025, time.June, 15)
	ends := []null.Time{
		{},
		null.TimeFrom(date(2020, time.January, 1)),
		null.TimeFrom(now),
		null.TimeFrom(date(2030, time.January, 1)),
	}
	for _, active := range []bool{true, false} {
		for _, end := range ends {
			st := ComputeSubscriptionStatus(School{Active: active, SubscriptionEnd: end}, now)
			if !st.Active && !st.NeedsPayment {
				t.Errorf("active=%v end=%v: inactive status must need payment", active, end)
			}
			if st.Active && st.NeedsPayment {
				t.Errorf("active=%v end=%v: active status must not need payment", active, end)
			}
		}
	}
}

// DaysRemaining never increases as time advances with no intervening writes.
func TestComputeSubscriptionStatus_daysRemainingMonotonic(t *testing.T) {
	sch := School{Active: true, SubscriptionEnd: null.TimeFrom(date(2025, time.March, 10))}

	prev := ComputeSubscriptionStatus(sch, date(2025, time.January, 1)).DaysRemaining
	now := date(2025, time.January, 1)
	for i := 0; i < 120; i++ {
		now = now.Add(18 * time.Hour)
		days := ComputeSubscriptionStatus(sch, now).DaysRemaining
		if days > prev {
			t.Fatalf("DaysRemaining increased from %d to %d at %v", prev, days, now)
		}
		if days < 0 {
			t.Fatalf("DaysRemaining went negative at %v", now)
		}
		prev = days
	}
}
