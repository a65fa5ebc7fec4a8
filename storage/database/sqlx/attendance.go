package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

const attendanceColumns = `id, school_id, student_id, date, present, created_at, updated_at`

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) UpsertAttendanceRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := repo.db.Rebind(`
INSERT INTO attendance_record (school_id, student_id, date, present, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (student_id, date)
DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		rec.SchoolID, rec.StudentID, rec.Date, rec.Present, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return rec, nil
}

func (repo attendanceRepository) GetAttendanceRecordByID(ctx context.Context, schoolID, id int) (attendance.Record, error) {
	var rec attendance.Record
	q := repo.db.Rebind(`SELECT ` + attendanceColumns + ` FROM attendance_record WHERE school_id = ? AND id = ?`)
	if err := repo.db.QueryRowContext(ctx, q, schoolID, id).Scan(
		&rec.ID, &rec.SchoolID, &rec.StudentID, &rec.Date, &rec.Present, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance record by ID")
	}
	rec.Date = attendance.DateOf(rec.Date)
	return rec, nil
}

func (repo attendanceRepository) QueryAttendanceRecords(ctx context.Context, schoolID int, filter *attendance.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]attendance.Record, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil {
		if filter.StudentID != 0 {
			conds = append(conds, `student_id = ?`)
			args = append(args, filter.StudentID)
		}
		if filter.Date != nil {
			conds = append(conds, `date = ?`)
			args = append(args, *filter.Date)
		}
		if filter.Present != nil {
			conds = append(conds, `present = ?`)
			args = append(args, *filter.Present)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM attendance_record`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance records")
	}

	q := `SELECT ` + attendanceColumns + ` FROM attendance_record` + where + orderByClause(ordering, "date DESC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := repo.db.QueryContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying attendance records")
	}
	defer func() { _ = rows.Close() }()

	var records []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		if err = rows.Scan(&rec.ID, &rec.SchoolID, &rec.StudentID, &rec.Date, &rec.Present, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scanning attendance record")
		}
		rec.Date = attendance.DateOf(rec.Date)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "querying attendance records")
	}
	return records, total, nil
}

func (repo attendanceRepository) DeleteAttendanceRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM attendance_record WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance records")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
