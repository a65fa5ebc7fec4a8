// Package dashboard builds the per-role read models. Everything here is
// derived fresh from the repositories on each call; nothing is cached or
// persisted.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/school"
)

// ErrUnavailable is returned once the retry budget for the fleet-wide query
// is exhausted; the API layer maps it to 503 with a retry hint.
var ErrUnavailable = errors.New("dashboard data temporarily unavailable")

// defaultExpiryWarningDays is the fallback "expiring soon" window when the
// config does not say otherwise.
const defaultExpiryWarningDays = 7

type (
	// SuperuserStats is the fleet-wide view.
	SuperuserStats struct {
		TotalSchools    int              `json:"total_schools"`
		ActiveSchools   int              `json:"active_schools"`
		InactiveSchools int              `json:"inactive_schools"`
		ExpiredSchools  int              `json:"expired_schools"`
		Revenue         float64          `json:"revenue"`
		ExpiringSoon    []ExpiringSchool `json:"expiring_soon"`
	}

	ExpiringSchool struct {
		ID            int       `json:"id"`
		Name          string    `json:"name"`
		Email         string    `json:"email"`
		EndsAt        time.Time `json:"ends_at"`
		DaysRemaining int       `json:"days_remaining"`
	}

	// AdminStats is one tenant's view.
	AdminStats struct {
		Students        int     `json:"students"`
		Staff           int     `json:"staff"`
		Classrooms      int     `json:"classrooms"`
		FeesCollected   float64 `json:"fees_collected"`   // current month
		FeesOutstanding float64 `json:"fees_outstanding"` // current month
	}

	StaffStats struct {
		SalariesPaid   int `json:"salaries_paid"`
		SalariesUnpaid int `json:"salaries_unpaid"`
	}

	StudentStats struct {
		FeesPaid    int     `json:"fees_paid"`
		FeesUnpaid  int     `json:"fees_unpaid"`
		Outstanding float64 `json:"outstanding"`
	}

	// Repository provides the raw rows and counts the aggregates are built
	// from. Tenant-scoped methods take the owning school's id first.
	Repository interface {
		// SchoolsSnapshot returns every tenant row; classification happens
		// in this package so the subscription rules live in one place.
		SchoolsSnapshot(ctx context.Context) ([]school.School, error)
		CountTenantRows(ctx context.Context, schoolID int) (students, staff, classrooms int, err error)
		FeeTotals(ctx context.Context, schoolID int, month time.Time) (collected, outstanding float64, err error)
		SalaryCountsByStaff(ctx context.Context, schoolID, staffID int) (paid, unpaid int, err error)
		FeeCountsByStudent(ctx context.Context, schoolID, studentID int) (paid, unpaid int, outstanding float64, err error)
	}

	ServiceInterface interface {
		Superuser(ctx context.Context) (SuperuserStats, error)
		Admin(ctx context.Context, schoolID int) (AdminStats, error)
		Staff(ctx context.Context, schoolID, staffID int) (StaffStats, error)
		Student(ctx context.Context, schoolID, studentID int) (StudentStats, error)
	}

	service struct {
		repo         Repository
		expiryWindow time.Duration
		nowFunc      func() time.Time // mockable
		retryDelays  []time.Duration  // shortened in tests
	}
)

var _ ServiceInterface = (*service)(nil)

// NewService builds the aggregator. expiryWarningDays is how far ahead the
// fleet view looks for subscriptions about to lapse (Access.ExpiryWarningDays).
func NewService(repo Repository, expiryWarningDays int) *service {
	if expiryWarningDays <= 0 {
		expiryWarningDays = defaultExpiryWarningDays
	}
	return &service{
		repo:         repo,
		expiryWindow: time.Duration(expiryWarningDays) * 24 * time.Hour,
		nowFunc:      time.Now,
		// one initial attempt plus these
		retryDelays: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond},
	}
}

// Superuser aggregates across every tenant. The snapshot query is the most
// expensive read in the product and the landing page is useless without it, so
// a failed fetch is retried with increasing delay before giving up.
func (svc *service) Superuser(ctx context.Context) (SuperuserStats, error) {
	schools, err := svc.snapshotWithRetry(ctx)
	if err != nil {
		return SuperuserStats{}, err
	}

	now := svc.nowFunc().UTC()
	horizon := now.Add(svc.expiryWindow)

	stats := SuperuserStats{TotalSchools: len(schools)}
	for _, sch := range schools {
		st := school.ComputeSubscriptionStatus(sch, now)
		if st.Active {
			stats.ActiveSchools++
		} else {
			stats.InactiveSchools++
		}
		// expired means the window has passed, whatever the manual flag says
		if sch.SubscriptionEnd.Valid && sch.SubscriptionEnd.Time.Before(now) {
			stats.ExpiredSchools++
		}
		if sch.PaymentAmount.Valid {
			stats.Revenue += sch.PaymentAmount.Float64
		}
		// only schools still effectively usable can be "expiring"; the window
		// is inclusive at the horizon
		if st.Active && !sch.SubscriptionEnd.Time.After(horizon) {
			stats.ExpiringSoon = append(stats.ExpiringSoon, ExpiringSchool{
				ID:            sch.ID,
				Name:          sch.Name,
				Email:         sch.Email,
				EndsAt:        sch.SubscriptionEnd.Time,
				DaysRemaining: st.DaysRemaining,
			})
		}
	}
	return stats, nil
}

func (svc *service) snapshotWithRetry(ctx context.Context) ([]school.School, error) {
	schools, err := svc.repo.SchoolsSnapshot(ctx)
	for _, delay := range svc.retryDelays {
		if err == nil {
			return schools, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		schools, err = svc.repo.SchoolsSnapshot(ctx)
	}
	if err != nil {
		// callers check the cause; the fetch error rides along as context
		return nil, errors.WithMessage(ErrUnavailable, err.Error())
	}
	return schools, nil
}

func (svc *service) Admin(ctx context.Context, schoolID int) (AdminStats, error) {
	students, staff, classrooms, err := svc.repo.CountTenantRows(ctx, schoolID)
	if err != nil {
		return AdminStats{}, err
	}
	month := finance.MonthOf(svc.nowFunc())
	collected, outstanding, err := svc.repo.FeeTotals(ctx, schoolID, month)
	if err != nil {
		return AdminStats{}, err
	}
	return AdminStats{
		Students:        students,
		Staff:           staff,
		Classrooms:      classrooms,
		FeesCollected:   collected,
		FeesOutstanding: outstanding,
	}, nil
}

func (svc *service) Staff(ctx context.Context, schoolID, staffID int) (StaffStats, error) {
	paid, unpaid, err := svc.repo.SalaryCountsByStaff(ctx, schoolID, staffID)
	if err != nil {
		return StaffStats{}, err
	}
	return StaffStats{SalariesPaid: paid, SalariesUnpaid: unpaid}, nil
}

func (svc *service) Student(ctx context.Context, schoolID, studentID int) (StudentStats, error) {
	paid, unpaid, outstanding, err := svc.repo.FeeCountsByStudent(ctx, schoolID, studentID)
	if err != nil {
		return StudentStats{}, err
	}
	return StudentStats{FeesPaid: paid, FeesUnpaid: unpaid, Outstanding: outstanding}, nil
}
