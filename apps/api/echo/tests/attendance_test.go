package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func Test_attendanceApi_mark(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	staffUsr := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", testPassword, user.RoleStaff, sch.ID, 1, true)
	staffToken := env.getToken(t, staffUsr)

	day := time.Date(2021, time.March, 8, 9, 30, 0, 0, time.UTC)

	t.Run("mark present", func(t *testing.T) {
		body := marchallObj(t, attendance.MarkAttendance{StudentID: 1, Date: day, Present: true})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", staffToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var rec1 attendance.Record
		decodeBody(t, rec, &rec1)
		if !rec1.Present {
			t.Error("failed! record not present")
		}
		if !rec1.Date.Equal(attendance.DateOf(day)) {
			t.Errorf("failed! date = %v; want %v", rec1.Date, attendance.DateOf(day))
		}
	})

	t.Run("re-marking the same day overwrites", func(t *testing.T) {
		// later the same day, the student turns out absent
		body := marchallObj(t, attendance.MarkAttendance{StudentID: 1, Date: day.Add(4 * time.Hour), Present: false})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", staffToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance?student_id=1", staffToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp struct {
			Items []attendance.Record `json:"items"`
			Total int                 `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 1 {
			t.Fatalf("failed! total = %v; want 1 (duplicate day)", resp.Total)
		}
		if resp.Items[0].Present {
			t.Error("failed! last write must win")
		}
	})

	t.Run("student id required", func(t *testing.T) {
		body := marchallObj(t, attendance.MarkAttendance{Date: day, Present: true})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", staffToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "this field is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("guards have no roll call", func(t *testing.T) {
		grdUsr := testutil.CreateUser(t, env.usrRepo, "Baraka", "baraka@test.cd", testPassword, user.RoleGuard, sch.ID, 1, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", env.getToken(t, grdUsr))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusForbidden, rec)
	})
}
