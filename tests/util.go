package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// NewConfig returns a self-contained Config for tests; nothing is read from
// the environment.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "Shule",
		SecretKey:                 "5up3r-53cr3t-t35t-k3y",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Addr:                      ":0",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Access: core.AccessConfig{
			ExpiryWarningDays: 7,
		},
	}
}

// CreateSchool stores a school with the given subscription window. A zero end
// time leaves the subscription unset.
func CreateSchool(t *testing.T, repo school.Repository, name string, active bool, end time.Time, amount float64) school.School {
	t.Helper()

	now := time.Now().UTC()
	sch := school.School{
		Name:      name,
		Email:     name + "@test.cd",
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !end.IsZero() {
		sch.SubscriptionStart.SetValid(now.AddDate(0, -1, 0))
		sch.SubscriptionEnd.SetValid(end.UTC())
	}
	if amount > 0 {
		sch.PaymentAmount.SetValid(amount)
		sch.LastPaymentDate.SetValid(now)
	}

	sch, err := repo.CreateSchool(context.Background(), sch)
	if err != nil {
		t.Fatalf("CreateSchool(): %v", err)
	}
	return sch
}

// CreateUser stores a user; linkID populates the record link matching the
// role, when the role has one.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	schoolID, linkID int,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		SchoolID:  null.NewInt(schoolID, schoolID != 0),
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch role {
	case user.RoleStaff:
		usr.StaffID = null.NewInt(linkID, linkID != 0)
	case user.RoleStudent:
		usr.StudentID = null.NewInt(linkID, linkID != 0)
	case user.RoleGuard:
		usr.GuardID = null.NewInt(linkID, linkID != 0)
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}

	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
