package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/guard"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	storagesvc "github.com/trezcool/shule/services/storage"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	testutil "github.com/trezcool/shule/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testPassword satisfies the password policy.
const testPassword = "S3kr3t!pwd"

type env struct {
	app  *Server
	conf *core.Config

	schoolRepo school.Repository
	usrRepo    user.Repository
	files      *storagesvc.MockStore

	usrSvc        user.ServiceInterface
	schoolSvc     school.ServiceInterface
	classroomSvc  classroom.ServiceInterface
	staffSvc      staff.ServiceInterface
	studentSvc    student.ServiceInterface
	guardSvc      guard.ServiceInterface
	financeSvc    finance.ServiceInterface
	attendanceSvc attendance.ServiceInterface
}

func setup(t *testing.T) *env {
	t.Helper()
	emailsvc.ClearSentMessages()

	conf := testutil.NewConfig()
	db := inmemdb.NewDB()
	files := storagesvc.NewMockStore()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	e := &env{
		conf:       conf,
		schoolRepo: inmemdb.NewSchoolRepository(db),
		usrRepo:    inmemdb.NewUserRepository(db),
		files:      files,
	}
	e.usrSvc = user.NewServiceMock(e.usrRepo, mailSvc, files, conf)
	e.schoolSvc = school.NewService(e.schoolRepo, files)
	e.classroomSvc = classroom.NewService(inmemdb.NewClassroomRepository(db))
	e.staffSvc = staff.NewService(inmemdb.NewStaffRepository(db), files)
	e.studentSvc = student.NewService(inmemdb.NewStudentRepository(db), files)
	e.guardSvc = guard.NewService(inmemdb.NewGuardRepository(db))
	e.financeSvc = finance.NewService(inmemdb.NewFinanceRepository(db))
	e.attendanceSvc = attendance.NewService(inmemdb.NewAttendanceRepository(db))

	e.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		UserSvc:        e.usrSvc,
		SchoolSvc:      e.schoolSvc,
		ClassroomSvc:   e.classroomSvc,
		StaffSvc:       e.staffSvc,
		StudentSvc:     e.studentSvc,
		GuardSvc:       e.guardSvc,
		FinanceSvc:     e.financeSvc,
		AttendanceSvc:  e.attendanceSvc,
		DashboardSvc:   dashboard.NewService(inmemdb.NewDashboardRepository(db), conf.Access.ExpiryWarningDays),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return e
}

// activeSchool stores a tenant whose subscription runs for another 30 days.
func (e *env) activeSchool(t *testing.T, name string) school.School {
	return testutil.CreateSchool(t, e.schoolRepo, name, true, time.Now().AddDate(0, 0, 30), 100)
}

// expiredSchool stores a tenant whose subscription lapsed 10 days ago.
func (e *env) expiredSchool(t *testing.T, name string) school.School {
	return testutil.CreateSchool(t, e.schoolRepo, name, true, time.Now().AddDate(0, 0, -10), 100)
}

func (e *env) superuser(t *testing.T) user.User {
	return testutil.CreateUser(t, e.usrRepo, "Root", "root@shule.cd", testPassword, user.RoleSuperuser, 0, 0, true)
}

func (e *env) admin(t *testing.T, sch school.School) user.User {
	return testutil.CreateUser(t, e.usrRepo, "Admin "+sch.Name, "admin@"+sch.Name+".cd", testPassword, user.RoleSchoolAdmin, sch.ID, 0, true)
}

func (e *env) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(e.conf, usr)
	token, err := GenerateToken(e.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newTranslator() ut.Translator {
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator("en")
	return translator
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type redirectErr struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func itoa(i int) string { return strconv.Itoa(i) }

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func checkCode(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("failed! code = %v; want %v; body = %s", rec.Code, want, rec.Body.String())
	}
}

// decodeBody unmarshals the response into dst, failing the test on bad JSON.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}
