package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/classroom"
)

const classroomColumns = `id, school_id, name, capacity, created_at, updated_at`

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := repo.db.Rebind(`
INSERT INTO classroom (school_id, name, capacity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		cls.SchoolID, cls.Name, cls.Capacity, cls.CreatedAt, cls.UpdatedAt,
	).Scan(&cls.ID)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, schoolID, id int) (classroom.Classroom, error) {
	var cls classroom.Classroom
	q := repo.db.Rebind(`SELECT ` + classroomColumns + ` FROM classroom WHERE school_id = ? AND id = ?`)
	if err := repo.db.QueryRowContext(ctx, q, schoolID, id).Scan(
		&cls.ID, &cls.SchoolID, &cls.Name, &cls.Capacity, &cls.CreatedAt, &cls.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom by ID")
	}
	return cls, nil
}

func (repo classroomRepository) QueryClassrooms(ctx context.Context, schoolID int, filter *classroom.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]classroom.Classroom, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil && filter.Search != "" {
		conds = append(conds, `name ILIKE ?`)
		args = append(args, "%"+filter.Search+"%")
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM classroom`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting classrooms")
	}

	q := `SELECT ` + classroomColumns + ` FROM classroom` + where + orderByClause(ordering, "name ASC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := repo.db.QueryContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying classrooms")
	}
	defer func() { _ = rows.Close() }()

	var classrooms []classroom.Classroom
	for rows.Next() {
		var cls classroom.Classroom
		if err = rows.Scan(&cls.ID, &cls.SchoolID, &cls.Name, &cls.Capacity, &cls.CreatedAt, &cls.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scanning classroom")
		}
		classrooms = append(classrooms, cls)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "querying classrooms")
	}
	return classrooms, total, nil
}

func (repo classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := repo.db.Rebind(`
UPDATE classroom SET name = ?, capacity = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q, cls.Name, cls.Capacity, cls.UpdatedAt, cls.SchoolID, cls.ID)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, nil
}

func (repo classroomRepository) DeleteClassroomsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM classroom WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting classrooms")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
