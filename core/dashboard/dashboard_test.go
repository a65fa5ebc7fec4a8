package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/school"
)

type snapshotRepo struct {
	Repository

	schools  []school.School
	failures int // fail this many calls before succeeding
	calls    int
}

func (r *snapshotRepo) SchoolsSnapshot(ctx context.Context) ([]school.School, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, errors.New("connection reset")
	}
	return r.schools, nil
}

func newTestService(repo Repository, now time.Time) *service {
	return &service{
		repo:         repo,
		expiryWindow: defaultExpiryWarningDays * 24 * time.Hour,
		nowFunc:      func() time.Time { return now },
		retryDelays:  []time.Duration{time.Millisecond, time.Millisecond},
	}
}

func TestSuperuser(t *testing.T) {
	now := time.Date(2021, time.March, 15, 10, 0, 0, 0, time.UTC)
	repo := &snapshotRepo{
		schools: []school.School{
			{ // healthy, not expiring
				ID: 1, Name: "Far Out",
				Active:          true,
				SubscriptionEnd: null.TimeFrom(now.AddDate(0, 2, 0)),
				PaymentAmount:   null.Float64From(300),
			},
			{ // expiring in 3 days
				ID: 2, Name: "Soon Gone", Email: "admin@soongone.test",
				Active:          true,
				SubscriptionEnd: null.TimeFrom(now.Add(3 * 24 * time.Hour)),
				PaymentAmount:   null.Float64From(150),
			},
			{ // expiring exactly at the 7 day horizon; still included
				ID: 3, Name: "Edge Case",
				Active:          true,
				SubscriptionEnd: null.TimeFrom(now.Add(7 * 24 * time.Hour)),
			},
			{ // lapsed last week
				ID: 4, Name: "Lapsed",
				Active:          true,
				SubscriptionEnd: null.TimeFrom(now.AddDate(0, 0, -7)),
				PaymentAmount:   null.Float64From(150),
			},
			{ // manually deactivated but window passed too
				ID: 5, Name: "Closed",
				Active:          false,
				SubscriptionEnd: null.TimeFrom(now.AddDate(0, -1, 0)),
			},
			{ // never subscribed
				ID: 6, Name: "Fresh",
			},
		},
	}

	stats, err := newTestService(repo, now).Superuser(context.Background())
	if err != nil {
		t.Fatalf("Superuser() error: %v", err)
	}

	if stats.TotalSchools != 6 {
		t.Errorf("TotalSchools = %d, want 6", stats.TotalSchools)
	}
	if stats.ActiveSchools != 3 {
		t.Errorf("ActiveSchools = %d, want 3", stats.ActiveSchools)
	}
	if stats.InactiveSchools != 3 {
		t.Errorf("InactiveSchools = %d, want 3", stats.InactiveSchools)
	}
	if stats.ExpiredSchools != 2 {
		t.Errorf("ExpiredSchools = %d, want 2", stats.ExpiredSchools)
	}
	if want := 600.0; stats.Revenue != want {
		t.Errorf("Revenue = %v, want %v", stats.Revenue, want)
	}

	if len(stats.ExpiringSoon) != 2 {
		t.Fatalf("ExpiringSoon = %d entries, want 2 (%+v)", len(stats.ExpiringSoon), stats.ExpiringSoon)
	}
	ids := map[int]bool{stats.ExpiringSoon[0].ID: true, stats.ExpiringSoon[1].ID: true}
	if !ids[2] || !ids[3] {
		t.Errorf("ExpiringSoon ids = %v, want {2, 3}", ids)
	}
	for _, exp := range stats.ExpiringSoon {
		if exp.ID == 2 && exp.DaysRemaining != 3 {
			t.Errorf("school 2 DaysRemaining = %d, want 3", exp.DaysRemaining)
		}
	}
}

func TestSuperuser_expiryWindow(t *testing.T) {
	now := time.Date(2021, time.March, 15, 10, 0, 0, 0, time.UTC)
	repo := &snapshotRepo{
		schools: []school.School{
			{
				ID: 1, Name: "Soon Gone",
				Active:          true,
				SubscriptionEnd: null.TimeFrom(now.Add(3 * 24 * time.Hour)),
			},
		},
	}

	// a 1 day window must not flag a school 3 days out
	svc := NewService(repo, 1)
	svc.nowFunc = func() time.Time { return now }
	stats, err := svc.Superuser(context.Background())
	if err != nil {
		t.Fatalf("Superuser() error: %v", err)
	}
	if len(stats.ExpiringSoon) != 0 {
		t.Errorf("ExpiringSoon = %+v, want none", stats.ExpiringSoon)
	}

	// zero falls back to the 7 day default, which does flag it
	repo.calls = 0
	svc = NewService(repo, 0)
	svc.nowFunc = func() time.Time { return now }
	stats, err = svc.Superuser(context.Background())
	if err != nil {
		t.Fatalf("Superuser() error: %v", err)
	}
	if len(stats.ExpiringSoon) != 1 {
		t.Errorf("ExpiringSoon = %+v, want 1 entry", stats.ExpiringSoon)
	}
}

func TestSuperuser_retry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("recovers within budget", func(t *testing.T) {
		repo := &snapshotRepo{failures: 2}
		if _, err := newTestService(repo, now).Superuser(context.Background()); err != nil {
			t.Fatalf("Superuser() error: %v", err)
		}
		if repo.calls != 3 {
			t.Errorf("snapshot calls = %d, want 3", repo.calls)
		}
	})

	t.Run("gives up after budget", func(t *testing.T) {
		repo := &snapshotRepo{failures: 3}
		_, err := newTestService(repo, now).Superuser(context.Background())
		if errors.Cause(err) != ErrUnavailable {
			t.Fatalf("Superuser() error = %v, want cause %v", err, ErrUnavailable)
		}
		if repo.calls != 3 {
			t.Errorf("snapshot calls = %d, want 3", repo.calls)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		repo := &snapshotRepo{failures: 3}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := newTestService(repo, now).Superuser(ctx); err == nil {
			t.Fatal("Superuser() expected error on cancelled context")
		}
		if repo.calls != 1 {
			t.Errorf("snapshot calls = %d, want 1", repo.calls)
		}
	})
}
