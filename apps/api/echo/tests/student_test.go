package tests

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/student"
)

func Test_studentApi_crud(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	adminToken := env.getToken(t, admin)

	var created student.Student

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, student.NewStudent{
			Name:         "Amani Kalala",
			GuardianName: "Mama Kalala",
			Phone:        "+243811111111",
			MonthlyFee:   25,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		decodeBody(t, rec, &created)
		if created.SchoolID != sch.ID {
			t.Errorf("failed! school_id = %v; want %v", created.SchoolID, sch.ID)
		}
	})

	t.Run("guardian required", func(t *testing.T) {
		body := marchallObj(t, student.NewStudent{Name: "No Guardian"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"guardian_name": "this field is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update keeps omitted fields", func(t *testing.T) {
		fee := 30.0
		body := marchallObj(t, student.UpdateStudent{MonthlyFee: &fee})
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+itoa(created.ID), adminToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var updated student.Student
		decodeBody(t, rec, &updated)
		if updated.MonthlyFee != fee {
			t.Errorf("failed! monthly_fee = %v; want %v", updated.MonthlyFee, fee)
		}
		if updated.Name != created.Name || updated.GuardianName != created.GuardianName {
			t.Errorf("failed! identity fields changed: %+v", updated)
		}
	})

	t.Run("search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students?search=amani", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp struct {
			Items []student.Student `json:"items"`
			Total int               `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 1 {
			t.Errorf("failed! total = %v; want 1", resp.Total)
		}
	})

	t.Run("photo upload", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("photo", "face.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		_, _ = io.WriteString(part, "jpg bytes")
		_ = w.Close()

		req := httptest.NewRequest(http.MethodPost, "/v1/students/"+itoa(created.ID)+"/photo", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp echoapi.StudentDetailResponse
		decodeBody(t, rec, &resp)
		if !resp.Student.Photo.Valid || resp.PhotoURL == "" {
			t.Errorf("failed! photo = %+v, url = %q", resp.Student.Photo, resp.PhotoURL)
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/students/"+itoa(created.ID), adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNoContent, rec)
	})
}

func Test_studentApi_tenantIsolation(t *testing.T) {
	env := setup(t)
	sch1 := env.activeSchool(t, "Mwanga")
	sch2 := env.activeSchool(t, "Tumaini")
	admin1 := env.admin(t, sch1)
	admin2 := env.admin(t, sch2)

	body := marchallObj(t, student.NewStudent{Name: "Amani", GuardianName: "Mama"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/students", env.getToken(t, admin1), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var std student.Student
	decodeBody(t, rec, &std)

	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+itoa(std.ID), env.getToken(t, admin2))
	env.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
	checkCodeAndData(t, tt, rec)
}
