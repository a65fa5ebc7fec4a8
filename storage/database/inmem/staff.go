package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

type staffRepository struct {
	db *DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stf.ID = repo.db.nextID()
	repo.db.staff[stf.ID] = &stf
	return stf, nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, schoolID, id int) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if stf, ok := repo.db.staff[id]; ok && stf.SchoolID == schoolID {
		return *stf, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) QueryStaff(ctx context.Context, schoolID int, filter *staff.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]staff.Staff, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []staff.Staff
	for _, stf := range repo.db.staff {
		if stf.SchoolID != schoolID {
			continue
		}
		if filter != nil && !matches(filter.Search, stf.Name, stf.Designation) {
			continue
		}
		matched = append(matched, *stf)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.staff[stf.ID]; !ok || orig.SchoolID != stf.SchoolID {
		return staff.Staff{}, staff.ErrNotFound
	}
	repo.db.staff[stf.ID] = &stf
	return stf, nil
}

func (repo *staffRepository) DeleteStaffByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if stf, ok := repo.db.staff[id]; ok && stf.SchoolID == schoolID {
			delete(repo.db.staff, id)
			n++
		}
	}
	return n, nil
}
