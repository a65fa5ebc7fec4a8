package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/finance"
)

type financeRepository struct {
	db *DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo *financeRepository) CreateFeeRecord(ctx context.Context, rec finance.FeeRecord) (finance.FeeRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.fees {
		if existing.StudentID == rec.StudentID && existing.Month.Equal(rec.Month) {
			return finance.FeeRecord{}, finance.ErrFeeExists
		}
	}
	rec.ID = repo.db.nextID()
	repo.db.fees[rec.ID] = &rec
	return rec, nil
}

func (repo *financeRepository) GetFeeRecordByID(ctx context.Context, schoolID, id int) (finance.FeeRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.fees[id]; ok && rec.SchoolID == schoolID {
		return *rec, nil
	}
	return finance.FeeRecord{}, finance.ErrFeeNotFound
}

func (repo *financeRepository) QueryFeeRecords(ctx context.Context, schoolID int, filter *finance.FeeQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]finance.FeeRecord, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []finance.FeeRecord
	for _, rec := range repo.db.fees {
		if rec.SchoolID != schoolID {
			continue
		}
		if filter != nil {
			if filter.StudentID != 0 && rec.StudentID != filter.StudentID {
				continue
			}
			if filter.Month != nil && !rec.Month.Equal(*filter.Month) {
				continue
			}
			if filter.Paid != nil && rec.Paid != *filter.Paid {
				continue
			}
		}
		matched = append(matched, *rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *financeRepository) UpdateFeeRecord(ctx context.Context, rec finance.FeeRecord) (finance.FeeRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.fees[rec.ID]; !ok || orig.SchoolID != rec.SchoolID {
		return finance.FeeRecord{}, finance.ErrFeeNotFound
	}
	repo.db.fees[rec.ID] = &rec
	return rec, nil
}

func (repo *financeRepository) DeleteFeeRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if rec, ok := repo.db.fees[id]; ok && rec.SchoolID == schoolID {
			delete(repo.db.fees, id)
			n++
		}
	}
	return n, nil
}

func (repo *financeRepository) CreateSalaryRecord(ctx context.Context, rec finance.SalaryRecord) (finance.SalaryRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.salaries {
		if existing.StaffID == rec.StaffID && existing.Month.Equal(rec.Month) {
			return finance.SalaryRecord{}, finance.ErrSalaryExists
		}
	}
	rec.ID = repo.db.nextID()
	repo.db.salaries[rec.ID] = &rec
	return rec, nil
}

func (repo *financeRepository) GetSalaryRecordByID(ctx context.Context, schoolID, id int) (finance.SalaryRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.salaries[id]; ok && rec.SchoolID == schoolID {
		return *rec, nil
	}
	return finance.SalaryRecord{}, finance.ErrSalaryNotFound
}

func (repo *financeRepository) QuerySalaryRecords(ctx context.Context, schoolID int, filter *finance.SalaryQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]finance.SalaryRecord, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []finance.SalaryRecord
	for _, rec := range repo.db.salaries {
		if rec.SchoolID != schoolID {
			continue
		}
		if filter != nil {
			if filter.StaffID != 0 && rec.StaffID != filter.StaffID {
				continue
			}
			if filter.Month != nil && !rec.Month.Equal(*filter.Month) {
				continue
			}
			if filter.Paid != nil && rec.Paid != *filter.Paid {
				continue
			}
		}
		matched = append(matched, *rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *financeRepository) UpdateSalaryRecord(ctx context.Context, rec finance.SalaryRecord) (finance.SalaryRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.salaries[rec.ID]; !ok || orig.SchoolID != rec.SchoolID {
		return finance.SalaryRecord{}, finance.ErrSalaryNotFound
	}
	repo.db.salaries[rec.ID] = &rec
	return rec, nil
}

func (repo *financeRepository) DeleteSalaryRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if rec, ok := repo.db.salaries[id]; ok && rec.SchoolID == schoolID {
			delete(repo.db.salaries, id)
			n++
		}
	}
	return n, nil
}
