package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shule/core/finance"
)

func Test_financeApi_fees(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	adminToken := env.getToken(t, admin)

	month := time.Date(2021, time.March, 15, 10, 0, 0, 0, time.UTC)
	var fee finance.FeeRecord

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, finance.NewFeeRecord{StudentID: 1, Month: month, Amount: 25})
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees", adminToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)

		decodeBody(t, rec, &fee)
		if !fee.Month.Equal(finance.MonthOf(month)) {
			t.Errorf("failed! month = %v; want %v", fee.Month, finance.MonthOf(month))
		}
		if fee.Paid {
			t.Error("failed! new fee already paid")
		}
	})

	t.Run("one record per student and month", func(t *testing.T) {
		// any day in the same month collides
		body := marchallObj(t, finance.NewFeeRecord{StudentID: 1, Month: month.AddDate(0, 0, 10), Amount: 30})
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees", adminToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": "a fee record for this student and month already exists"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("pay", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees/"+itoa(fee.ID)+"/pay", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var paid finance.FeeRecord
		decodeBody(t, rec, &paid)
		if !paid.Paid || !paid.PaidAt.Valid {
			t.Errorf("failed! paid = %v, paid_at = %+v", paid.Paid, paid.PaidAt)
		}
	})

	t.Run("double pay rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees/"+itoa(fee.ID)+"/pay", adminToken)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"paid": "record is already marked paid"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("paid filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/fees?paid=false", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		var resp struct {
			Items []finance.FeeRecord `json:"items"`
			Total int                 `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 0 {
			t.Errorf("failed! total = %v; want 0", resp.Total)
		}
	})

	t.Run("unknown fee", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/fees/999/pay", adminToken)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_financeApi_salaries(t *testing.T) {
	env := setup(t)
	sch := env.activeSchool(t, "Mwanga")
	admin := env.admin(t, sch)
	adminToken := env.getToken(t, admin)

	month := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	var sal finance.SalaryRecord

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, finance.NewSalaryRecord{StaffID: 1, Month: month, Amount: 300})
		req, rec := newAuthRequest(http.MethodPost, "/v1/salaries", adminToken, body)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)
		decodeBody(t, rec, &sal)
	})

	t.Run("one record per staff and month", func(t *testing.T) {
		body := marchallObj(t, finance.NewSalaryRecord{StaffID: 1, Month: month, Amount: 300})
		req, rec := newAuthRequest(http.MethodPost, "/v1/salaries", adminToken, body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": "a salary record for this staff member and month already exists"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("pay and delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/salaries/"+itoa(sal.ID)+"/pay", adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/salaries?id="+itoa(sal.ID), adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNoContent, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/salaries/"+itoa(sal.ID), adminToken)
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusNotFound, rec)
	})
}

func Test_financeApi_tenantIsolation(t *testing.T) {
	env := setup(t)
	sch1 := env.activeSchool(t, "Mwanga")
	sch2 := env.activeSchool(t, "Tumaini")
	admin1 := env.admin(t, sch1)
	admin2 := env.admin(t, sch2)

	body := marchallObj(t, finance.NewFeeRecord{StudentID: 1, Month: time.Now(), Amount: 25})
	req, rec := newAuthRequest(http.MethodPost, "/v1/fees", env.getToken(t, admin1), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var fee finance.FeeRecord
	decodeBody(t, rec, &fee)

	// same month, same student id, different tenant: no collision
	req, rec = newAuthRequest(http.MethodPost, "/v1/fees", env.getToken(t, admin2), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/fees/"+itoa(fee.ID)+"/pay", env.getToken(t, admin2))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)
}
