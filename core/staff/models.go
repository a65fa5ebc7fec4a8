package staff

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Staff struct {
	ID            int         `json:"id"`
	SchoolID      int         `json:"school_id"`
	Name          string      `json:"name"`
	Designation   string      `json:"designation"`
	Phone         string      `json:"phone"`
	MonthlySalary float64     `json:"monthly_salary"`
	Photo         null.String `json:"photo"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewStaff struct {
	Name          string  `json:"name" validate:"required"`
	Designation   string  `json:"designation" validate:"required"`
	Phone         string  `json:"phone" validate:"omitempty,phone"`
	MonthlySalary float64 `json:"monthly_salary" validate:"omitempty,gte=0"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Designation = core.CleanString(ns.Designation)
	ns.Phone = core.CleanString(ns.Phone)
	return validate.Struct(ns)
}

type UpdateStaff struct {
	Name          string   `json:"name"`
	Designation   string   `json:"designation"`
	Phone         string   `json:"phone" validate:"omitempty,phone"`
	MonthlySalary *float64 `json:"monthly_salary" validate:"omitempty,gte=0"`
}

func (us *UpdateStaff) Validate(orig Staff, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if des := core.CleanString(us.Designation); des != "" {
		us.Designation = des
	} else {
		us.Designation = orig.Designation
	}
	us.Phone = core.CleanString(us.Phone)
	if us.Phone == "" {
		us.Phone = orig.Phone
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Search == "" }

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
