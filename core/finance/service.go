package finance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrFeeNotFound    = errors.New("fee record not found")
	ErrSalaryNotFound = errors.New("salary record not found")

	// a (student|staff, month) pair gets at most one record
	ErrFeeExists    = errors.New("a fee record for this student and month already exists")
	ErrSalaryExists = errors.New("a salary record for this staff member and month already exists")

	errAlreadyPaid = errors.New("record is already marked paid")
)

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		CreateFeeRecord(ctx context.Context, rec FeeRecord) (FeeRecord, error)
		GetFeeRecordByID(ctx context.Context, schoolID, id int) (FeeRecord, error)
		QueryFeeRecords(ctx context.Context, schoolID int, filter *FeeQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]FeeRecord, int, error)
		UpdateFeeRecord(ctx context.Context, rec FeeRecord) (FeeRecord, error)
		DeleteFeeRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error)

		CreateSalaryRecord(ctx context.Context, rec SalaryRecord) (SalaryRecord, error)
		GetSalaryRecordByID(ctx context.Context, schoolID, id int) (SalaryRecord, error)
		QuerySalaryRecords(ctx context.Context, schoolID int, filter *SalaryQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]SalaryRecord, int, error)
		UpdateSalaryRecord(ctx context.Context, rec SalaryRecord) (SalaryRecord, error)
		DeleteSalaryRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error)
	}

	ServiceInterface interface {
		CreateFee(ctx context.Context, schoolID int, nf NewFeeRecord) (FeeRecord, error)
		GetFeeByID(ctx context.Context, schoolID, id int) (FeeRecord, error)
		QueryFees(ctx context.Context, schoolID int, filter *FeeQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]FeeRecord, int, error)
		MarkFeePaid(ctx context.Context, schoolID, id int) (FeeRecord, error)
		DeleteFees(ctx context.Context, schoolID int, ids ...int) error

		CreateSalary(ctx context.Context, schoolID int, ns NewSalaryRecord) (SalaryRecord, error)
		GetSalaryByID(ctx context.Context, schoolID, id int) (SalaryRecord, error)
		QuerySalaries(ctx context.Context, schoolID int, filter *SalaryQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]SalaryRecord, int, error)
		MarkSalaryPaid(ctx context.Context, schoolID, id int) (SalaryRecord, error)
		DeleteSalaries(ctx context.Context, schoolID int, ids ...int) error
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

func (svc *service) CreateFee(ctx context.Context, schoolID int, nf NewFeeRecord) (FeeRecord, error) {
	now := svc.nowFunc().UTC()
	rec := FeeRecord{
		SchoolID:  schoolID,
		StudentID: nf.StudentID,
		Month:     MonthOf(nf.Month),
		Amount:    nf.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := svc.repo.CreateFeeRecord(ctx, rec)
	if err != nil {
		if errors.Cause(err) == ErrFeeExists {
			return FeeRecord{}, core.NewValidationError(err, core.FieldError{Field: "month", Error: ErrFeeExists.Error()})
		}
		return FeeRecord{}, err
	}
	return rec, nil
}

func (svc *service) GetFeeByID(ctx context.Context, schoolID, id int) (FeeRecord, error) {
	return svc.repo.GetFeeRecordByID(ctx, schoolID, id)
}

func (svc *service) QueryFees(ctx context.Context, schoolID int, filter *FeeQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]FeeRecord, int, error) {
	return svc.repo.QueryFeeRecords(ctx, schoolID, filter, ordering, page.Normalize())
}

// MarkFeePaid stamps PaidAt once; paying twice is rejected so the original
// payment time survives.
func (svc *service) MarkFeePaid(ctx context.Context, schoolID, id int) (FeeRecord, error) {
	rec, err := svc.repo.GetFeeRecordByID(ctx, schoolID, id)
	if err != nil {
		return FeeRecord{}, err
	}
	if rec.Paid {
		return FeeRecord{}, core.NewValidationError(errAlreadyPaid, core.FieldError{Field: "paid", Error: errAlreadyPaid.Error()})
	}
	now := svc.nowFunc().UTC()
	rec.Paid = true
	rec.PaidAt.SetValid(now)
	rec.UpdatedAt = now
	return svc.repo.UpdateFeeRecord(ctx, rec)
}

func (svc *service) DeleteFees(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteFeeRecordsByID(ctx, schoolID, ids...)
	return err
}

func (svc *service) CreateSalary(ctx context.Context, schoolID int, ns NewSalaryRecord) (SalaryRecord, error) {
	now := svc.nowFunc().UTC()
	rec := SalaryRecord{
		SchoolID:  schoolID,
		StaffID:   ns.StaffID,
		Month:     MonthOf(ns.Month),
		Amount:    ns.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := svc.repo.CreateSalaryRecord(ctx, rec)
	if err != nil {
		if errors.Cause(err) == ErrSalaryExists {
			return SalaryRecord{}, core.NewValidationError(err, core.FieldError{Field: "month", Error: ErrSalaryExists.Error()})
		}
		return SalaryRecord{}, err
	}
	return rec, nil
}

func (svc *service) GetSalaryByID(ctx context.Context, schoolID, id int) (SalaryRecord, error) {
	return svc.repo.GetSalaryRecordByID(ctx, schoolID, id)
}

func (svc *service) QuerySalaries(ctx context.Context, schoolID int, filter *SalaryQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]SalaryRecord, int, error) {
	return svc.repo.QuerySalaryRecords(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) MarkSalaryPaid(ctx context.Context, schoolID, id int) (SalaryRecord, error) {
	rec, err := svc.repo.GetSalaryRecordByID(ctx, schoolID, id)
	if err != nil {
		return SalaryRecord{}, err
	}
	if rec.Paid {
		return SalaryRecord{}, core.NewValidationError(errAlreadyPaid, core.FieldError{Field: "paid", Error: errAlreadyPaid.Error()})
	}
	now := svc.nowFunc().UTC()
	rec.Paid = true
	rec.PaidAt.SetValid(now)
	rec.UpdatedAt = now
	return svc.repo.UpdateSalaryRecord(ctx, rec)
}

func (svc *service) DeleteSalaries(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteSalaryRecordsByID(ctx, schoolID, ids...)
	return err
}
