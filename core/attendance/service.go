package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		// UpsertAttendanceRecord inserts or overwrites the record for
		// (rec.StudentID, rec.Date); last write wins.
		UpsertAttendanceRecord(ctx context.Context, rec Record) (Record, error)
		GetAttendanceRecordByID(ctx context.Context, schoolID, id int) (Record, error)
		QueryAttendanceRecords(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Record, int, error)
		DeleteAttendanceRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error)
	}

	ServiceInterface interface {
		Mark(ctx context.Context, schoolID int, ma MarkAttendance) (Record, error)
		GetByID(ctx context.Context, schoolID, id int) (Record, error)
		Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Record, int, error)
		Delete(ctx context.Context, schoolID int, ids ...int) error
	}

	service struct {
		repo    Repository
		nowFunc func() time.Time // mockable
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo, nowFunc: time.Now}
}

func (svc *service) Mark(ctx context.Context, schoolID int, ma MarkAttendance) (Record, error) {
	now := svc.nowFunc().UTC()
	rec := Record{
		SchoolID:  schoolID,
		StudentID: ma.StudentID,
		Date:      DateOf(ma.Date),
		Present:   ma.Present,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.UpsertAttendanceRecord(ctx, rec)
}

func (svc *service) GetByID(ctx context.Context, schoolID, id int) (Record, error) {
	return svc.repo.GetAttendanceRecordByID(ctx, schoolID, id)
}

func (svc *service) Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Record, int, error) {
	return svc.repo.QueryAttendanceRecords(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) Delete(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteAttendanceRecordsByID(ctx, schoolID, ids...)
	return err
}
