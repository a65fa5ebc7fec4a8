package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Record is one student's presence for one calendar day.
type Record struct {
	ID        int       `json:"id"`
	SchoolID  int       `json:"school_id"`
	StudentID int       `json:"student_id"`
	Date      time.Time `json:"date"` // midnight UTC
	Present   bool      `json:"present"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// MarkAttendance records one student's presence for a day. Marking the same
// (student, date) again overwrites the previous value; last write wins.
type MarkAttendance struct {
	StudentID int       `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.Date = DateOf(ma.Date)
	return validate.Struct(ma)
}

type QueryFilter struct {
	StudentID int        `query:"student_id"`
	Date      *time.Time `query:"date"`
	Present   *bool      `query:"present"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == 0 && qf.Date == nil && qf.Present == nil
}

func (qf *QueryFilter) Clean() {
	if qf.Date != nil {
		d := DateOf(*qf.Date)
		qf.Date = &d
	}
}

// DateOf truncates t to midnight UTC. Attendance is keyed by calendar day so
// "same day" compares with ==.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
