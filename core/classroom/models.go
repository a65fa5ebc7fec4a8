package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Classroom struct {
	ID       int    `json:"id"`
	SchoolID int    `json:"school_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewClassroom struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateClassroom struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

func (uc *UpdateClassroom) Validate(orig Classroom, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if uc.Capacity == 0 {
		uc.Capacity = orig.Capacity
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Search == "" }

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
