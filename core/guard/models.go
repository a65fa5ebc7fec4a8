package guard

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Guard struct {
	ID       int    `json:"id"`
	SchoolID int    `json:"school_id"`
	Name     string `json:"name"`
	Shift    string `json:"shift"`
	Phone    string `json:"phone"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Visitor is a gate-log entry recorded by a guard. LeftAt stays null while the
// visitor is still on the premises.
type Visitor struct {
	ID        int       `json:"id"`
	SchoolID  int       `json:"school_id"`
	GuardID   int       `json:"guard_id"`
	Name      string    `json:"name"`
	Purpose   string    `json:"purpose"`
	EnteredAt time.Time `json:"entered_at"` // UTC
	LeftAt    null.Time `json:"left_at"`
}

type NewGuard struct {
	Name  string `json:"name" validate:"required"`
	Shift string `json:"shift" validate:"required"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func (ng *NewGuard) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Shift = core.CleanString(ng.Shift)
	ng.Phone = core.CleanString(ng.Phone)
	return validate.Struct(ng)
}

type UpdateGuard struct {
	Name  string `json:"name"`
	Shift string `json:"shift"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func (ug *UpdateGuard) Validate(orig Guard, validate *validator.Validate) error {
	if name := core.CleanString(ug.Name); name != "" {
		ug.Name = name
	} else {
		ug.Name = orig.Name
	}
	if shift := core.CleanString(ug.Shift); shift != "" {
		ug.Shift = shift
	} else {
		ug.Shift = orig.Shift
	}
	ug.Phone = core.CleanString(ug.Phone)
	if ug.Phone == "" {
		ug.Phone = orig.Phone
	}
	return validate.Struct(ug)
}

type NewVisitor struct {
	Name    string `json:"name" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
}

func (nv *NewVisitor) Validate(validate *validator.Validate) error {
	nv.Name = core.CleanString(nv.Name)
	nv.Purpose = core.CleanString(nv.Purpose)
	return validate.Struct(nv)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Search == "" }

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type VisitorQueryFilter struct {
	Search  string `query:"search"`
	GuardID int    `query:"guard_id"`
	// Present selects visitors that have not signed out yet
	Present *bool `query:"present"`
}

func (qf *VisitorQueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.GuardID == 0 && qf.Present == nil
}

func (qf *VisitorQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
