package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/school"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) *dashboardRepository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) SchoolsSnapshot(ctx context.Context) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].ID < schools[j].ID })
	return schools, nil
}

func (repo *dashboardRepository) CountTenantRows(ctx context.Context, schoolID int) (students, staff, classrooms int, err error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.db.students {
		if std.SchoolID == schoolID {
			students++
		}
	}
	for _, stf := range repo.db.staff {
		if stf.SchoolID == schoolID {
			staff++
		}
	}
	for _, cls := range repo.db.classrooms {
		if cls.SchoolID == schoolID {
			classrooms++
		}
	}
	return students, staff, classrooms, nil
}

func (repo *dashboardRepository) FeeTotals(ctx context.Context, schoolID int, month time.Time) (collected, outstanding float64, err error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rec := range repo.db.fees {
		if rec.SchoolID != schoolID || !rec.Month.Equal(month) {
			continue
		}
		if rec.Paid {
			collected += rec.Amount
		} else {
			outstanding += rec.Amount
		}
	}
	return collected, outstanding, nil
}

func (repo *dashboardRepository) SalaryCountsByStaff(ctx context.Context, schoolID, staffID int) (paid, unpaid int, err error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rec := range repo.db.salaries {
		if rec.SchoolID != schoolID || rec.StaffID != staffID {
			continue
		}
		if rec.Paid {
			paid++
		} else {
			unpaid++
		}
	}
	return paid, unpaid, nil
}

func (repo *dashboardRepository) FeeCountsByStudent(ctx context.Context, schoolID, studentID int) (paid, unpaid int, outstanding float64, err error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rec := range repo.db.fees {
		if rec.SchoolID != schoolID || rec.StudentID != studentID {
			continue
		}
		if rec.Paid {
			paid++
		} else {
			unpaid++
			outstanding += rec.Amount
		}
	}
	return paid, unpaid, outstanding, nil
}
