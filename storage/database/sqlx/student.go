package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

const studentColumns = `id, school_id, classroom_id, name, guardian_name, phone, monthly_fee, photo, created_at, updated_at`

type studentRow struct {
	ID           int         `db:"id"`
	SchoolID     int         `db:"school_id"`
	ClassroomID  null.Int    `db:"classroom_id"`
	Name         string      `db:"name"`
	GuardianName string      `db:"guardian_name"`
	Phone        string      `db:"phone"`
	MonthlyFee   float64     `db:"monthly_fee"`
	Photo        null.String `db:"photo"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r studentRow) toCore() student.Student {
	return student.Student{
		ID:           r.ID,
		SchoolID:     r.SchoolID,
		ClassroomID:  r.ClassroomID,
		Name:         r.Name,
		GuardianName: r.GuardianName,
		Phone:        r.Phone,
		MonthlyFee:   r.MonthlyFee,
		Photo:        r.Photo,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := repo.db.Rebind(`
INSERT INTO student (school_id, classroom_id, name, guardian_name, phone, monthly_fee, photo, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		std.SchoolID, std.ClassroomID, std.Name, std.GuardianName, std.Phone, std.MonthlyFee,
		std.Photo, std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, schoolID, id int) (student.Student, error) {
	var row studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student WHERE school_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	return row.toCore(), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, schoolID int, filter *student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]student.Student, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(name ILIKE ? OR guardian_name ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.ClassroomID != 0 {
			conds = append(conds, `classroom_id = ?`)
			args = append(args, filter.ClassroomID)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM student`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	q := `SELECT ` + studentColumns + ` FROM student` + where + orderByClause(ordering, "name ASC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toCore())
	}
	return students, total, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := repo.db.Rebind(`
UPDATE student
SET classroom_id = ?, name = ?, guardian_name = ?, phone = ?, monthly_fee = ?, photo = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		std.ClassroomID, std.Name, std.GuardianName, std.Phone, std.MonthlyFee, std.Photo,
		std.UpdatedAt, std.SchoolID, std.ID,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM student WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
