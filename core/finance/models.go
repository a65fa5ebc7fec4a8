package finance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

// FeeRecord is one student's fee for one month.
type FeeRecord struct {
	ID        int       `json:"id"`
	SchoolID  int       `json:"school_id"`
	StudentID int       `json:"student_id"`
	Month     time.Time `json:"month"` // first day of the month, UTC
	Amount    float64   `json:"amount"`
	Paid      bool      `json:"paid"`
	PaidAt    null.Time `json:"paid_at"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// SalaryRecord is one staff member's salary for one month.
type SalaryRecord struct {
	ID       int       `json:"id"`
	SchoolID int       `json:"school_id"`
	StaffID  int       `json:"staff_id"`
	Month    time.Time `json:"month"` // first day of the month, UTC
	Amount   float64   `json:"amount"`
	Paid     bool      `json:"paid"`
	PaidAt   null.Time `json:"paid_at"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewFeeRecord struct {
	StudentID int       `json:"student_id" validate:"required"`
	Month     time.Time `json:"month" validate:"required"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
}

func (nf *NewFeeRecord) Validate(validate *validator.Validate) error {
	nf.Month = MonthOf(nf.Month)
	return validate.Struct(nf)
}

type NewSalaryRecord struct {
	StaffID int       `json:"staff_id" validate:"required"`
	Month   time.Time `json:"month" validate:"required"`
	Amount  float64   `json:"amount" validate:"required,gt=0"`
}

func (ns *NewSalaryRecord) Validate(validate *validator.Validate) error {
	ns.Month = MonthOf(ns.Month)
	return validate.Struct(ns)
}

type FeeQueryFilter struct {
	StudentID int        `query:"student_id"`
	Month     *time.Time `query:"month"`
	Paid      *bool      `query:"paid"`
}

func (qf *FeeQueryFilter) IsEmpty() bool {
	return qf.StudentID == 0 && qf.Month == nil && qf.Paid == nil
}

func (qf *FeeQueryFilter) Clean() {
	if qf.Month != nil {
		m := MonthOf(*qf.Month)
		qf.Month = &m
	}
}

type SalaryQueryFilter struct {
	StaffID int        `query:"staff_id"`
	Month   *time.Time `query:"month"`
	Paid    *bool      `query:"paid"`
}

func (qf *SalaryQueryFilter) IsEmpty() bool {
	return qf.StaffID == 0 && qf.Month == nil && qf.Paid == nil
}

func (qf *SalaryQueryFilter) Clean() {
	if qf.Month != nil {
		m := MonthOf(*qf.Month)
		qf.Month = &m
	}
}

// MonthOf truncates t to the first day of its month in UTC. All monthly
// records are keyed this way so "same month" compares with ==.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
