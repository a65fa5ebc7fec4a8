package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("classroom not found")

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, schoolID, id int) (Classroom, error)
		// QueryClassrooms applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name.
		QueryClassrooms(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Classroom, int, error)
		UpdateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		DeleteClassroomsByID(ctx context.Context, schoolID int, ids ...int) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, schoolID int, nc NewClassroom) (Classroom, error)
		GetByID(ctx context.Context, schoolID, id int) (Classroom, error)
		Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Classroom, int, error)
		Update(ctx context.Context, orig Classroom, uc UpdateClassroom) (Classroom, error)
		Delete(ctx context.Context, schoolID int, ids ...int) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, schoolID int, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()
	cls := Classroom{
		SchoolID:  schoolID,
		Name:      nc.Name,
		Capacity:  nc.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateClassroom(ctx, cls)
}

func (svc *service) GetByID(ctx context.Context, schoolID, id int) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, schoolID, id)
}

func (svc *service) Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Classroom, int, error) {
	return svc.repo.QueryClassrooms(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig Classroom, uc UpdateClassroom) (Classroom, error) {
	cls := orig
	cls.Name = uc.Name
	cls.Capacity = uc.Capacity
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClassroom(ctx, cls)
}

func (svc *service) Delete(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteClassroomsByID(ctx, schoolID, ids...)
	return err
}
