package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Student struct {
	ID           int         `json:"id"`
	SchoolID     int         `json:"school_id"`
	ClassroomID  null.Int    `json:"classroom_id"`
	Name         string      `json:"name"`
	GuardianName string      `json:"guardian_name"`
	Phone        string      `json:"phone"`
	MonthlyFee   float64     `json:"monthly_fee"`
	Photo        null.String `json:"photo"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewStudent struct {
	ClassroomID  int     `json:"classroom_id"`
	Name         string  `json:"name" validate:"required"`
	GuardianName string  `json:"guardian_name" validate:"required"`
	Phone        string  `json:"phone" validate:"omitempty,phone"`
	MonthlyFee   float64 `json:"monthly_fee" validate:"omitempty,gte=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.Phone = core.CleanString(ns.Phone)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	ClassroomID  *int     `json:"classroom_id"`
	Name         string   `json:"name"`
	GuardianName string   `json:"guardian_name"`
	Phone        string   `json:"phone" validate:"omitempty,phone"`
	MonthlyFee   *float64 `json:"monthly_fee" validate:"omitempty,gte=0"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if g := core.CleanString(us.GuardianName); g != "" {
		us.GuardianName = g
	} else {
		us.GuardianName = orig.GuardianName
	}
	us.Phone = core.CleanString(us.Phone)
	if us.Phone == "" {
		us.Phone = orig.Phone
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search      string `query:"search"`
	ClassroomID int    `query:"classroom_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassroomID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
