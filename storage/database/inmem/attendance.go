package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertAttendanceRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.attendance {
		if existing.StudentID == rec.StudentID && existing.Date.Equal(rec.Date) {
			existing.Present = rec.Present
			existing.UpdatedAt = rec.UpdatedAt
			return *existing, nil
		}
	}
	rec.ID = repo.db.nextID()
	repo.db.attendance[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) GetAttendanceRecordByID(ctx context.Context, schoolID, id int) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.attendance[id]; ok && rec.SchoolID == schoolID {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendanceRecords(ctx context.Context, schoolID int, filter *attendance.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]attendance.Record, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []attendance.Record
	for _, rec := range repo.db.attendance {
		if rec.SchoolID != schoolID {
			continue
		}
		if filter != nil {
			if filter.StudentID != 0 && rec.StudentID != filter.StudentID {
				continue
			}
			if filter.Date != nil && !rec.Date.Equal(*filter.Date) {
				continue
			}
			if filter.Present != nil && rec.Present != *filter.Present {
				continue
			}
		}
		matched = append(matched, *rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *attendanceRepository) DeleteAttendanceRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if rec, ok := repo.db.attendance[id]; ok && rec.SchoolID == schoolID {
			delete(repo.db.attendance, id)
			n++
		}
	}
	return n, nil
}
