package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

const staffColumns = `id, school_id, name, designation, phone, monthly_salary, photo, created_at, updated_at`

type staffRow struct {
	ID            int         `db:"id"`
	SchoolID      int         `db:"school_id"`
	Name          string      `db:"name"`
	Designation   string      `db:"designation"`
	Phone         string      `db:"phone"`
	MonthlySalary float64     `db:"monthly_salary"`
	Photo         null.String `db:"photo"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r staffRow) toCore() staff.Staff {
	return staff.Staff{
		ID:            r.ID,
		SchoolID:      r.SchoolID,
		Name:          r.Name,
		Designation:   r.Designation,
		Phone:         r.Phone,
		MonthlySalary: r.MonthlySalary,
		Photo:         r.Photo,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{db: db}
}

func (repo staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	q := repo.db.Rebind(`
INSERT INTO staff (school_id, name, designation, phone, monthly_salary, photo, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		stf.SchoolID, stf.Name, stf.Designation, stf.Phone, stf.MonthlySalary, stf.Photo,
		stf.CreatedAt, stf.UpdatedAt,
	).Scan(&stf.ID)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return stf, nil
}

func (repo staffRepository) GetStaffByID(ctx context.Context, schoolID, id int) (staff.Staff, error) {
	var row staffRow
	q := repo.db.Rebind(`SELECT ` + staffColumns + ` FROM staff WHERE school_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff by ID")
	}
	return row.toCore(), nil
}

func (repo staffRepository) QueryStaff(ctx context.Context, schoolID int, filter *staff.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]staff.Staff, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil && filter.Search != "" {
		conds = append(conds, `(name ILIKE ? OR designation ILIKE ?)`)
		val := "%" + filter.Search + "%"
		args = append(args, val, val)
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM staff`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting staff")
	}

	q := `SELECT ` + staffColumns + ` FROM staff` + where + orderByClause(ordering, "name ASC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying staff")
	}
	members := make([]staff.Staff, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toCore())
	}
	return members, total, nil
}

func (repo staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	q := repo.db.Rebind(`
UPDATE staff SET name = ?, designation = ?, phone = ?, monthly_salary = ?, photo = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		stf.Name, stf.Designation, stf.Phone, stf.MonthlySalary, stf.Photo, stf.UpdatedAt,
		stf.SchoolID, stf.ID,
	)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "updating staff")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return staff.Staff{}, staff.ErrNotFound
	}
	return stf, nil
}

func (repo staffRepository) DeleteStaffByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM staff WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting staff")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
