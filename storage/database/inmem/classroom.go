package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = repo.db.nextID()
	repo.db.classrooms[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, schoolID, id int) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classrooms[id]; ok && cls.SchoolID == schoolID {
		return *cls, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassrooms(ctx context.Context, schoolID int, filter *classroom.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]classroom.Classroom, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []classroom.Classroom
	for _, cls := range repo.db.classrooms {
		if cls.SchoolID != schoolID {
			continue
		}
		if filter != nil && !matches(filter.Search, cls.Name) {
			continue
		}
		matched = append(matched, *cls)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.classrooms[cls.ID]; !ok || orig.SchoolID != cls.SchoolID {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	repo.db.classrooms[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) DeleteClassroomsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if cls, ok := repo.db.classrooms[id]; ok && cls.SchoolID == schoolID {
			delete(repo.db.classrooms, id)
			n++
		}
	}
	return n, nil
}
