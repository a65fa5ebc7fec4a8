package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// all must be called with at least the read lock held.
func (repo *schoolRepository) all() []school.School {
	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].ID < schools[j].ID })
	return schools
}

func (repo *schoolRepository) CheckSchoolNameUniqueness(ctx context.Context, name string, excludedSchools ...school.School) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sch := range repo.db.schools {
		if strings.EqualFold(sch.Name, name) && !schoolExcluded(*sch, excludedSchools) {
			return school.ErrNameExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sch.ID = repo.db.nextID()
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.School, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []school.School
	for _, sch := range repo.all() {
		if filter != nil {
			if !matches(filter.Search, sch.Name, sch.Email) {
				continue
			}
			if filter.Active != nil && sch.Active != *filter.Active {
				continue
			}
		}
		matched = append(matched, sch)
	}
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schools[sch.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.schools[id]; ok {
			delete(repo.db.schools, id)
			n++
		}
	}
	return n, nil
}

func schoolExcluded(sch school.School, excluded []school.School) bool {
	for _, ex := range excluded {
		if ex.ID == sch.ID {
			return true
		}
	}
	return false
}
