package tests

import (
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/guard"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func Test_guardApi_visitorLog(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	adminToken := env.getToken(t, admin)

	// the gate guard and their user account
	var grd guard.Guard
	body := marchallObj(t, guard.NewGuard{Name: "Baraka", Shift: "night", Phone: "+243822222222"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/guards", adminToken, body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	decodeBody(t, rec, &grd)

	guardUsr := testutil.CreateUser(t, env.usrRepo, "Baraka", "baraka@test.cd", testPassword, user.RoleGuard, sch.ID, grd.ID, true)
	guardToken := env.getToken(t, guardUsr)

	var vis guard.Visitor

	t.Run("phone must be valid", func(t *testing.T) {
		body := marchallObj(t, guard.NewGuard{Name: "Askari", Shift: "day", Phone: "not-a-number!"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/guards", adminToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"phone": "enter a valid phone number"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("sign in", func(t *testing.T) {
		body := marchallObj(t, guard.NewVisitor{Name: "Mgeni Moja", Purpose: "parent meeting"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/guards/"+itoa(grd.ID)+"/visitors", guardToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		decodeBody(t, rec, &vis)
		if vis.GuardID != grd.ID {
			t.Errorf("failed! guard_id = %v; want %v", vis.GuardID, grd.ID)
		}
		if vis.EnteredAt.IsZero() {
			t.Error("failed! entered_at not set")
		}
		if vis.LeftAt.Valid {
			t.Error("failed! left_at already set on sign-in")
		}
	})

	t.Run("sign in against unknown guard", func(t *testing.T) {
		body := marchallObj(t, guard.NewVisitor{Name: "Mgeni", Purpose: "visit"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/guards/999/visitors", guardToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("present filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/visitors?present=true", guardToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp struct {
			Items []guard.Visitor `json:"items"`
			Total int             `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 1 {
			t.Errorf("failed! total = %v; want 1", resp.Total)
		}
	})

	t.Run("sign out", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/visitors/"+itoa(vis.ID)+"/sign-out", guardToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var signedOut guard.Visitor
		decodeBody(t, rec, &signedOut)
		if !signedOut.LeftAt.Valid {
			t.Error("failed! left_at not set")
		}

		// nobody on the premises anymore
		req, rec = newAuthRequest(http.MethodGet, "/v1/visitors?present=true", guardToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		var resp struct {
			Total int `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 0 {
			t.Errorf("failed! total = %v; want 0", resp.Total)
		}
	})

	t.Run("double sign out rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/visitors/"+itoa(vis.ID)+"/sign-out", guardToken)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"left_at": "visitor has already signed out"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("guards cannot manage guard records", func(t *testing.T) {
		body := marchallObj(t, guard.NewGuard{Name: "Askari", Shift: "day"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/guards", guardToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, redirectErr{Error: "permission denied", Redirect: access.PathVisitorLog}),
		}
		checkCodeAndData(t, tt, rec)
	})
}
