package tests

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

func Test_schoolApi_superuserOnly(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "school admin bounced to own dashboard", token: env.getToken(t, admin),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, redirectErr{Error: "permission denied", Redirect: access.PathSchoolDashboard}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/schools"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_schoolApi_register(t *testing.T) {
	env := setup(t)
	root := env.superuser(t)
	rootToken := env.getToken(t, root)

	schoolCount := func(t *testing.T) int {
		t.Helper()
		_, total, err := env.schoolSvc.Query(context.Background(), &school.QueryFilter{}, nil, core.Pagination{})
		if err != nil {
			t.Fatalf("Query(): %v", err)
		}
		return total
	}

	t.Run("school and admin created together", func(t *testing.T) {
		body := marchallObj(t, echoapi.RegisterSchoolRequest{
			School: school.NewSchool{Name: "Upendo", Email: "upendo@test.cd"},
			Admin: user.NewUser{
				Name:            "Head Admin",
				Email:           "head@upendo.cd",
				Password:        testPassword,
				PasswordConfirm: testPassword,
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools", rootToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		var resp echoapi.RegisterSchoolResponse
		decodeBody(t, rec, &resp)
		if resp.School.Active {
			t.Error("failed! new schools must start inactive")
		}
		if resp.Admin.Role != user.RoleSchoolAdmin {
			t.Errorf("failed! role = %v; want %v", resp.Admin.Role, user.RoleSchoolAdmin)
		}
		if resp.Admin.SchoolID.Int != resp.School.ID {
			t.Errorf("failed! admin school_id = %v; want %v", resp.Admin.SchoolID.Int, resp.School.ID)
		}
	})

	t.Run("failed admin create rolls the school back", func(t *testing.T) {
		before := schoolCount(t)

		// same admin email as above; user uniqueness rejects it
		body := marchallObj(t, echoapi.RegisterSchoolRequest{
			School: school.NewSchool{Name: "Amani", Email: "amani@test.cd"},
			Admin: user.NewUser{
				Name:            "Head Admin",
				Email:           "head@upendo.cd",
				Password:        testPassword,
				PasswordConfirm: testPassword,
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools", rootToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)

		if after := schoolCount(t); after != before {
			t.Errorf("failed! school count = %d; want %d (orphaned school left behind)", after, before)
		}
	})
}

func Test_schoolApi_renew(t *testing.T) {
	env := setup(t)
	root := env.superuser(t)
	rootToken := env.getToken(t, root)
	lapsed := env.expiredSchool(t, "Tumaini")

	path := "/v1/schools/" + itoa(lapsed.ID) + "/renew"

	t.Run("invalid months", func(t *testing.T) {
		body := marchallObj(t, school.RenewSubscription{Months: 0, Amount: 50})
		req, rec := newAuthRequest(http.MethodPost, path, rootToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)
	})

	t.Run("lapsed school extends from now", func(t *testing.T) {
		body := marchallObj(t, school.RenewSubscription{Months: 2, Amount: 50})
		req, rec := newAuthRequest(http.MethodPost, path, rootToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.SchoolDetailResponse
		decodeBody(t, rec, &resp)
		if !resp.Status.Active {
			t.Error("failed! renewed school not active")
		}
		if resp.Status.NeedsPayment {
			t.Error("failed! renewed school still needs payment")
		}
		// lapsed 10 days ago; 2 months from now, not from the old end
		if !resp.School.SubscriptionEnd.Time.After(time.Now().AddDate(0, 1, 0)) {
			t.Errorf("failed! subscription_end = %v; want > 1 month out", resp.School.SubscriptionEnd.Time)
		}
	})
}

func Test_schoolApi_activateDeactivate(t *testing.T) {
	env := setup(t)
	root := env.superuser(t)
	rootToken := env.getToken(t, root)
	sch := env.activeSchool(t, "Mwanga")

	do := func(t *testing.T, action string) echoapi.SchoolDetailResponse {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools/"+itoa(sch.ID)+"/"+action, rootToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		var resp echoapi.SchoolDetailResponse
		decodeBody(t, rec, &resp)
		return resp
	}

	resp := do(t, "deactivate")
	if resp.School.Active || resp.Status.Active {
		t.Error("failed! school still active after deactivate")
	}
	if !resp.Status.NeedsPayment {
		t.Error("failed! deactivated school must need payment")
	}

	// the subscription window was untouched, so flipping the flag back
	// restores access
	resp = do(t, "activate")
	if !resp.Status.Active {
		t.Error("failed! school not active after activate")
	}
}

func Test_schoolApi_uploadLogo(t *testing.T) {
	env := setup(t)
	root := env.superuser(t)
	rootToken := env.getToken(t, root)
	sch := env.activeSchool(t, "Mwanga")
	path := "/v1/schools/" + itoa(sch.ID) + "/logo"

	newUpload := func(t *testing.T, filename string) (*http.Request, *httptest.ResponseRecorder) {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if filename != "" {
			part, err := w.CreateFormFile("logo", filename)
			if err != nil {
				t.Fatalf("CreateFormFile(): %v", err)
			}
			_, _ = io.WriteString(part, "not really an image")
		}
		_ = w.Close()

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+rootToken)
		return req, httptest.NewRecorder()
	}

	t.Run("file required", func(t *testing.T) {
		req, rec := newUpload(t, "")
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"logo": "a logo file is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("bad extension", func(t *testing.T) {
		req, rec := newUpload(t, "logo.exe")
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)
	})

	t.Run("upload failure leaves the school untouched", func(t *testing.T) {
		env.files.FailUploads = true
		defer func() { env.files.FailUploads = false }()

		req, rec := newUpload(t, "logo.png")
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)

		refreshed, err := env.schoolSvc.GetByID(context.Background(), sch.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if refreshed.Logo.Valid {
			t.Errorf("failed! logo = %v; want unset", refreshed.Logo.String)
		}
	})

	t.Run("upload ok", func(t *testing.T) {
		req, rec := newUpload(t, "logo.png")
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.SchoolDetailResponse
		decodeBody(t, rec, &resp)
		if !resp.School.Logo.Valid {
			t.Error("failed! logo not set")
		}
		if resp.LogoURL == "" {
			t.Error("failed! empty logo URL")
		}
	})
}

func Test_schoolApi_ownSchool(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)

	t.Run("tenant sees its own school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools/me", env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.SchoolDetailResponse
		decodeBody(t, rec, &resp)
		if resp.School.ID != sch.ID {
			t.Errorf("failed! id = %v; want %v", resp.School.ID, sch.ID)
		}
		if !resp.Status.Active {
			t.Error("failed! status not active")
		}
	})

	t.Run("subscription view", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools/me/subscription", env.getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var st school.SubscriptionStatus
		decodeBody(t, rec, &st)
		if st.NeedsPayment {
			t.Error("failed! active school flagged for payment")
		}
	})

	t.Run("superusers have no school of their own", func(t *testing.T) {
		root := env.superuser(t)
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools/me", env.getToken(t, root))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})
}
