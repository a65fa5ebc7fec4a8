package tests

import (
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog@test.cd", testPassword, user.RoleStudent, sch.ID, 1, false) // 😂

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "who@test.cd", Password: testPassword}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: admin.Email, Password: "Wr0ng!pwd"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: naughty.Email, Password: testPassword}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login ok", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: admin.Email, Password: testPassword})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				checkCode(t, tt.wantCode, rec)
				var resp echoapi.LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				if resp.Redirect != access.PathSchoolDashboard {
					t.Errorf("failed! redirect = %v; want %v", resp.Redirect, access.PathSchoolDashboard)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	active := env.activeSchool(t, "Mwanga")
	lapsed := env.expiredSchool(t, "Tumaini")
	admin := env.admin(t, active)
	lapsedAdmin := env.admin(t, lapsed)
	root := env.superuser(t)

	t.Run("active subscription", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.MeResponse
		decodeBody(t, rec, &resp)
		if resp.Decision.Outcome != access.Allow {
			t.Errorf("failed! outcome = %v; want %v", resp.Decision.Outcome, access.Allow)
		}
		if resp.Home != access.PathSchoolDashboard {
			t.Errorf("failed! home = %v; want %v", resp.Home, access.PathSchoolDashboard)
		}
		if resp.School == nil || resp.School.ID != active.ID {
			t.Errorf("failed! school = %+v; want id %d", resp.School, active.ID)
		}
	})

	t.Run("lapsed subscription warns but loads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", env.getToken(t, lapsedAdmin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.MeResponse
		decodeBody(t, rec, &resp)
		if resp.Decision.Outcome != access.AllowWithWarning {
			t.Errorf("failed! outcome = %v; want %v", resp.Decision.Outcome, access.AllowWithWarning)
		}
		if resp.Decision.Status == nil || !resp.Decision.Status.NeedsPayment {
			t.Errorf("failed! status = %+v; want NeedsPayment", resp.Decision.Status)
		}
	})

	t.Run("superuser has no tenant", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", env.getToken(t, root))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.MeResponse
		decodeBody(t, rec, &resp)
		if resp.Decision.Outcome != access.Allow {
			t.Errorf("failed! outcome = %v; want %v", resp.Decision.Outcome, access.Allow)
		}
		if resp.School != nil {
			t.Errorf("failed! school = %+v; want nil", resp.School)
		}
		if resp.Home != access.PathSuperuserDashboard {
			t.Errorf("failed! home = %v; want %v", resp.Home, access.PathSuperuserDashboard)
		}
	})

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/me")
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)
	sch1 := env.activeSchool(t, "Mwanga")
	sch2 := env.activeSchool(t, "Tumaini")
	admin1 := env.admin(t, sch1)
	admin2 := env.admin(t, sch2)
	root := env.superuser(t)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero@test.cd", testPassword, user.RoleStudent, sch1.ID, 1, true)

	tests := []struct {
		name      string
		token     string
		wantCode  int
		wantTotal int
		wantIDs   []string
	}{
		{name: "superuser sees everyone", token: env.getToken(t, root), wantCode: http.StatusOK, wantTotal: 4, wantIDs: []string{admin1.ID, admin2.ID, root.ID, student.ID}},
		{name: "school admin is tenant scoped", token: env.getToken(t, admin1), wantCode: http.StatusOK, wantTotal: 2, wantIDs: []string{admin1.ID, student.ID}},
		{name: "student not allowed", token: env.getToken(t, student), wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCode(t, tt.wantCode, rec)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				Items []user.User `json:"items"`
				Total int         `json:"total"`
			}
			decodeBody(t, rec, &resp)
			if resp.Total != tt.wantTotal {
				t.Errorf("failed! total = %v; want %v", resp.Total, tt.wantTotal)
			}
			got := make(map[string]bool, len(resp.Items))
			for _, usr := range resp.Items {
				got[usr.ID] = true
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("failed! user %s missing from result", id)
				}
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)
	sch1 := env.activeSchool(t, "Mwanga")
	sch2 := env.activeSchool(t, "Tumaini")
	admin1 := env.admin(t, sch1)
	adminToken := env.getToken(t, admin1)

	t.Run("school admin creates in own tenant only", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Second Admin",
			Email:           "second@mwanga.cd",
			Password:        testPassword,
			PasswordConfirm: testPassword,
			Role:            user.RoleSchoolAdmin,
			SchoolID:        sch2.ID, // ignored; forced to the caller's tenant
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		var usr user.User
		decodeBody(t, rec, &usr)
		if usr.SchoolID.Int != sch1.ID {
			t.Errorf("failed! school_id = %v; want %v", usr.SchoolID.Int, sch1.ID)
		}
	})

	t.Run("school admin cannot mint superusers", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Sneaky",
			Email:           "sneaky@mwanga.cd",
			Password:        testPassword,
			PasswordConfirm: testPassword,
			Role:            user.RoleSuperuser,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "not enough rights to set this role"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("staff role requires a staff record", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Unlinked",
			Email:           "unlinked@mwanga.cd",
			Password:        testPassword,
			PasswordConfirm: testPassword,
			Role:            user.RoleStaff,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"staff_id": "this field is required for this role"}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_userApi_retrieveTenantIsolation(t *testing.T) {
	env := setup(t)
	sch1 := env.activeSchool(t, "Mwanga")
	sch2 := env.activeSchool(t, "Tumaini")
	admin1 := env.admin(t, sch1)
	admin2 := env.admin(t, sch2)
	adminToken := env.getToken(t, admin1)

	tests := []httpTest{
		{name: "own tenant ok", path: "/v1/users/" + admin1.ID, wantCode: http.StatusOK},
		{
			name: "cross tenant probe looks like a missing id", path: "/v1/users/" + admin2.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "unknown id", path: "/v1/users/nope",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.token = adminToken

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			if tt.wantData == nil {
				checkCode(t, tt.wantCode, rec)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_resetPassword(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)

	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.cd"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: admin.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: admin.Name, Address: admin.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if !extra.emailSent {
					if len(emailsvc.SentMessages) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
					}
					return
				}
				if len(emailsvc.SentMessages) != 1 {
					t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
				}
				msg := emailsvc.SentMessages[0]
				if msg.To[0] != extra.to {
					t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
				}
				if !strings.Contains(msg.TextContent, extra.to.Name) {
					t.Errorf("failed! text content does not contain recipient's name %q", extra.to.Name)
				}
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog@test.cd", testPassword, user.RoleStudent, sch.ID, 1, false)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "inactive user not allowed", token: env.getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "token refreshed", token: env.getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				checkCode(t, tt.wantCode, rec)
				var resp echoapi.LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
