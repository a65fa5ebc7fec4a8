package guard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound        = errors.New("guard not found")
	ErrVisitorNotFound = errors.New("visitor not found")

	errAlreadyLeft = errors.New("visitor has already signed out")
)

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		CreateGuard(ctx context.Context, grd Guard) (Guard, error)
		GetGuardByID(ctx context.Context, schoolID, id int) (Guard, error)
		// QueryGuards applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or Shift.
		QueryGuards(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Guard, int, error)
		UpdateGuard(ctx context.Context, grd Guard) (Guard, error)
		DeleteGuardsByID(ctx context.Context, schoolID int, ids ...int) (int, error)

		CreateVisitor(ctx context.Context, vis Visitor) (Visitor, error)
		GetVisitorByID(ctx context.Context, schoolID, id int) (Visitor, error)
		// QueryVisitors applies AND on available VisitorQueryFilter fields.
		// VisitorQueryFilter.Search does a case-insensitive match on Name or Purpose.
		QueryVisitors(ctx context.Context, schoolID int, filter *VisitorQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Visitor, int, error)
		UpdateVisitor(ctx context.Context, vis Visitor) (Visitor, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, schoolID int, ng NewGuard) (Guard, error)
		GetByID(ctx context.Context, schoolID, id int) (Guard, error)
		Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Guard, int, error)
		Update(ctx context.Context, orig Guard, ug UpdateGuard) (Guard, error)
		Delete(ctx context.Context, schoolID int, ids ...int) error

		SignInVisitor(ctx context.Context, schoolID, guardID int, nv NewVisitor) (Visitor, error)
		SignOutVisitor(ctx context.Context, schoolID, id int) (Visitor, error)
		QueryVisitors(ctx context.Context, schoolID int, filter *VisitorQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Visitor, int, error)
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

func (svc *service) Create(ctx context.Context, schoolID int, ng NewGuard) (Guard, error) {
	now := svc.nowFunc().UTC()
	grd := Guard{
		SchoolID:  schoolID,
		Name:      ng.Name,
		Shift:     ng.Shift,
		Phone:     ng.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateGuard(ctx, grd)
}

func (svc *service) GetByID(ctx context.Context, schoolID, id int) (Guard, error) {
	return svc.repo.GetGuardByID(ctx, schoolID, id)
}

func (svc *service) Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Guard, int, error) {
	return svc.repo.QueryGuards(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig Guard, ug UpdateGuard) (Guard, error) {
	grd := orig
	grd.Name = ug.Name
	grd.Shift = ug.Shift
	grd.Phone = ug.Phone
	grd.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateGuard(ctx, grd)
}

func (svc *service) Delete(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteGuardsByID(ctx, schoolID, ids...)
	return err
}

// SignInVisitor records a new gate-log entry attributed to the signing guard.
func (svc *service) SignInVisitor(ctx context.Context, schoolID, guardID int, nv NewVisitor) (Visitor, error) {
	if _, err := svc.repo.GetGuardByID(ctx, schoolID, guardID); err != nil {
		return Visitor{}, err
	}
	vis := Visitor{
		SchoolID:  schoolID,
		GuardID:   guardID,
		Name:      nv.Name,
		Purpose:   nv.Purpose,
		EnteredAt: svc.nowFunc().UTC(),
	}
	return svc.repo.CreateVisitor(ctx, vis)
}

// SignOutVisitor stamps LeftAt. Signing out twice is rejected so the original
// departure time is never overwritten.
func (svc *service) SignOutVisitor(ctx context.Context, schoolID, id int) (Visitor, error) {
	vis, err := svc.repo.GetVisitorByID(ctx, schoolID, id)
	if err != nil {
		return Visitor{}, err
	}
	if vis.LeftAt.Valid {
		return Visitor{}, core.NewValidationError(errAlreadyLeft, core.FieldError{Field: "left_at", Error: errAlreadyLeft.Error()})
	}
	vis.LeftAt.SetValid(svc.nowFunc().UTC())
	return svc.repo.UpdateVisitor(ctx, vis)
}

func (svc *service) QueryVisitors(ctx context.Context, schoolID int, filter *VisitorQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Visitor, int, error) {
	return svc.repo.QueryVisitors(ctx, schoolID, filter, ordering, page.Normalize())
}
