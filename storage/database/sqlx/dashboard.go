package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/school"
)

type dashboardRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *sqlx.DB) *dashboardRepository {
	return &dashboardRepository{db: db}
}

func (repo dashboardRepository) SchoolsSnapshot(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+schoolColumns+` FROM school`); err != nil {
		return nil, errors.Wrap(err, "snapshotting schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toCore())
	}
	return schools, nil
}

func (repo dashboardRepository) CountTenantRows(ctx context.Context, schoolID int) (students, staff, classrooms int, err error) {
	q := repo.db.Rebind(`
SELECT
	(SELECT COUNT(*) FROM student WHERE school_id = ?),
	(SELECT COUNT(*) FROM staff WHERE school_id = ?),
	(SELECT COUNT(*) FROM classroom WHERE school_id = ?)`)
	if err = repo.db.QueryRowContext(ctx, q, schoolID, schoolID, schoolID).Scan(&students, &staff, &classrooms); err != nil {
		return 0, 0, 0, errors.Wrap(err, "counting tenant rows")
	}
	return students, staff, classrooms, nil
}

func (repo dashboardRepository) FeeTotals(ctx context.Context, schoolID int, month time.Time) (collected, outstanding float64, err error) {
	q := repo.db.Rebind(`
SELECT
	COALESCE(SUM(amount) FILTER (WHERE paid), 0),
	COALESCE(SUM(amount) FILTER (WHERE NOT paid), 0)
FROM fee_record
WHERE school_id = ? AND month = ?`)
	if err = repo.db.QueryRowContext(ctx, q, schoolID, month).Scan(&collected, &outstanding); err != nil {
		return 0, 0, errors.Wrap(err, "totalling fees")
	}
	return collected, outstanding, nil
}

func (repo dashboardRepository) SalaryCountsByStaff(ctx context.Context, schoolID, staffID int) (paid, unpaid int, err error) {
	q := repo.db.Rebind(`
SELECT
	COUNT(*) FILTER (WHERE paid),
	COUNT(*) FILTER (WHERE NOT paid)
FROM salary_record
WHERE school_id = ? AND staff_id = ?`)
	if err = repo.db.QueryRowContext(ctx, q, schoolID, staffID).Scan(&paid, &unpaid); err != nil {
		return 0, 0, errors.Wrap(err, "counting salary records")
	}
	return paid, unpaid, nil
}

func (repo dashboardRepository) FeeCountsByStudent(ctx context.Context, schoolID, studentID int) (paid, unpaid int, outstanding float64, err error) {
	q := repo.db.Rebind(`
SELECT
	COUNT(*) FILTER (WHERE paid),
	COUNT(*) FILTER (WHERE NOT paid),
	COALESCE(SUM(amount) FILTER (WHERE NOT paid), 0)
FROM fee_record
WHERE school_id = ? AND student_id = ?`)
	if err = repo.db.QueryRowContext(ctx, q, schoolID, studentID).Scan(&paid, &unpaid, &outstanding); err != nil {
		return 0, 0, 0, errors.Wrap(err, "counting fee records")
	}
	return paid, unpaid, outstanding, nil
}
