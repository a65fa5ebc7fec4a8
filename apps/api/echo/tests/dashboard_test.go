package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func Test_dashboardApi_superuser(t *testing.T) {
	env := setup(t)
	env.activeSchool(t, "Mwanga")
	env.expiredSchool(t, "Tumaini")
	root := env.superuser(t)

	t.Run("fleet stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/superuser", env.getToken(t, root))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.DashboardResponse
		decodeBody(t, rec, &resp)
		if resp.Outcome != access.Allow {
			t.Errorf("failed! outcome = %v; want %v", resp.Outcome, access.Allow)
		}
		if resp.Superuser == nil {
			t.Fatal("failed! missing superuser stats")
		}
		if resp.Superuser.TotalSchools != 2 {
			t.Errorf("failed! total_schools = %v; want 2", resp.Superuser.TotalSchools)
		}
		if resp.Superuser.ActiveSchools != 1 || resp.Superuser.InactiveSchools != 1 {
			t.Errorf("failed! active = %v, inactive = %v; want 1/1", resp.Superuser.ActiveSchools, resp.Superuser.InactiveSchools)
		}
		if resp.Superuser.ExpiredSchools != 1 {
			t.Errorf("failed! expired_schools = %v; want 1", resp.Superuser.ExpiredSchools)
		}
		if resp.Superuser.Revenue != 200 {
			t.Errorf("failed! revenue = %v; want 200", resp.Superuser.Revenue)
		}
	})

	t.Run("tenant roles not allowed", func(t *testing.T) {
		sch := env.activeSchool(t, "Upendo")
		admin := env.admin(t, sch)
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/superuser", env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, redirectErr{Error: "permission denied", Redirect: access.PathSchoolDashboard}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_dashboardApi_admin(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	ctx := context.Background()

	if _, err := env.classroomSvc.Create(ctx, sch.ID, classroom.NewClassroom{Name: "Grade 1"}); err != nil {
		t.Fatalf("Create(): %v", err)
	}
	std, err := env.studentSvc.Create(ctx, sch.ID, student.NewStudent{Name: "Amani", GuardianName: "Mama", MonthlyFee: 25})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if _, err := env.staffSvc.Create(ctx, sch.ID, staff.NewStaff{Name: "Teacher", Designation: "math"}); err != nil {
		t.Fatalf("Create(): %v", err)
	}
	// one fee this month, unpaid
	if _, err := env.financeSvc.CreateFee(ctx, sch.ID, finance.NewFeeRecord{StudentID: std.ID, Month: time.Now(), Amount: 25}); err != nil {
		t.Fatalf("CreateFee(): %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", env.getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var resp echoapi.DashboardResponse
	decodeBody(t, rec, &resp)
	if resp.Outcome != access.Allow {
		t.Errorf("failed! outcome = %v; want %v", resp.Outcome, access.Allow)
	}
	if resp.Home != access.PathSchoolDashboard {
		t.Errorf("failed! home = %v; want %v", resp.Home, access.PathSchoolDashboard)
	}
	if resp.Admin == nil {
		t.Fatal("failed! missing admin stats")
	}
	if resp.Admin.Students != 1 || resp.Admin.Staff != 1 || resp.Admin.Classrooms != 1 {
		t.Errorf("failed! counts = %+v; want 1/1/1", resp.Admin)
	}
	if resp.Admin.FeesOutstanding != 25 || resp.Admin.FeesCollected != 0 {
		t.Errorf("failed! fees = %+v; want 25 outstanding, 0 collected", resp.Admin)
	}
}

func Test_dashboardApi_student(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	ctx := context.Background()

	std, err := env.studentSvc.Create(ctx, sch.ID, student.NewStudent{Name: "Amani", GuardianName: "Mama", MonthlyFee: 25})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	fee, err := env.financeSvc.CreateFee(ctx, sch.ID, finance.NewFeeRecord{StudentID: std.ID, Month: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), Amount: 25})
	if err != nil {
		t.Fatalf("CreateFee(): %v", err)
	}
	if _, err := env.financeSvc.MarkFeePaid(ctx, sch.ID, fee.ID); err != nil {
		t.Fatalf("MarkFeePaid(): %v", err)
	}
	if _, err := env.financeSvc.CreateFee(ctx, sch.ID, finance.NewFeeRecord{StudentID: std.ID, Month: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Amount: 30}); err != nil {
		t.Fatalf("CreateFee(): %v", err)
	}

	stdUsr := testutil.CreateUser(t, env.usrRepo, "Amani", "amani@test.cd", testPassword, user.RoleStudent, sch.ID, std.ID, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", env.getToken(t, stdUsr))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var resp echoapi.DashboardResponse
	decodeBody(t, rec, &resp)
	if resp.Student == nil {
		t.Fatal("failed! missing student stats")
	}
	if resp.Student.FeesPaid != 1 || resp.Student.FeesUnpaid != 1 {
		t.Errorf("failed! fees = %+v; want 1 paid, 1 unpaid", resp.Student)
	}
	if resp.Student.Outstanding != 30 {
		t.Errorf("failed! outstanding = %v; want 30", resp.Student.Outstanding)
	}
}

func Test_dashboardApi_redirects(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	lapsed := env.expiredSchool(t, "Tumaini")

	grdUsr := testutil.CreateUser(t, env.usrRepo, "Baraka", "baraka@test.cd", testPassword, user.RoleGuard, sch.ID, 1, true)
	unlinkedStaff := testutil.CreateUser(t, env.usrRepo, "Ghost", "ghost@test.cd", testPassword, user.RoleStaff, sch.ID, 0, true)
	lapsedAdmin := env.admin(t, lapsed)

	t.Run("guards land on the visitor log", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", env.getToken(t, grdUsr))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.DashboardResponse
		decodeBody(t, rec, &resp)
		if resp.Redirect != access.PathVisitorLog {
			t.Errorf("failed! redirect = %v; want %v", resp.Redirect, access.PathVisitorLog)
		}
	})

	t.Run("staff without a linked record goes to profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", env.getToken(t, unlinkedStaff))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.DashboardResponse
		decodeBody(t, rec, &resp)
		if resp.Redirect != access.PathProfile {
			t.Errorf("failed! redirect = %v; want %v", resp.Redirect, access.PathProfile)
		}
		if resp.Staff != nil {
			t.Errorf("failed! stats = %+v; want none", resp.Staff)
		}
	})

	t.Run("lapsed tenant still loads with the payment prompt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", env.getToken(t, lapsedAdmin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.DashboardResponse
		decodeBody(t, rec, &resp)
		if resp.Outcome != access.AllowWithWarning {
			t.Errorf("failed! outcome = %v; want %v", resp.Outcome, access.AllowWithWarning)
		}
		if resp.Subscription == nil || !resp.Subscription.NeedsPayment {
			t.Errorf("failed! subscription = %+v; want NeedsPayment", resp.Subscription)
		}
	})
}
