package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/guard"
)

const (
	guardColumns   = `id, school_id, name, shift, phone, created_at, updated_at`
	visitorColumns = `id, school_id, guard_id, name, purpose, entered_at, left_at`
)

type visitorRow struct {
	ID        int       `db:"id"`
	SchoolID  int       `db:"school_id"`
	GuardID   int       `db:"guard_id"`
	Name      string    `db:"name"`
	Purpose   string    `db:"purpose"`
	EnteredAt time.Time `db:"entered_at"`
	LeftAt    null.Time `db:"left_at"`
}

func (r visitorRow) toCore() guard.Visitor {
	return guard.Visitor{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		GuardID:   r.GuardID,
		Name:      r.Name,
		Purpose:   r.Purpose,
		EnteredAt: r.EnteredAt,
		LeftAt:    r.LeftAt,
	}
}

type guardRepository struct {
	db *sqlx.DB
}

var _ guard.Repository = (*guardRepository)(nil) // interface compliance check

func NewGuardRepository(db *sqlx.DB) *guardRepository {
	return &guardRepository{db: db}
}

func (repo guardRepository) CreateGuard(ctx context.Context, grd guard.Guard) (guard.Guard, error) {
	q := repo.db.Rebind(`
INSERT INTO guard (school_id, name, shift, phone, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		grd.SchoolID, grd.Name, grd.Shift, grd.Phone, grd.CreatedAt, grd.UpdatedAt,
	).Scan(&grd.ID)
	if err != nil {
		return guard.Guard{}, errors.Wrap(err, "inserting guard")
	}
	return grd, nil
}

func (repo guardRepository) GetGuardByID(ctx context.Context, schoolID, id int) (guard.Guard, error) {
	var grd guard.Guard
	q := repo.db.Rebind(`SELECT ` + guardColumns + ` FROM guard WHERE school_id = ? AND id = ?`)
	if err := repo.db.QueryRowContext(ctx, q, schoolID, id).Scan(
		&grd.ID, &grd.SchoolID, &grd.Name, &grd.Shift, &grd.Phone, &grd.CreatedAt, &grd.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return guard.Guard{}, guard.ErrNotFound
		}
		return guard.Guard{}, errors.Wrap(err, "finding guard by ID")
	}
	return grd, nil
}

func (repo guardRepository) QueryGuards(ctx context.Context, schoolID int, filter *guard.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]guard.Guard, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil && filter.Search != "" {
		conds = append(conds, `(name ILIKE ? OR shift ILIKE ?)`)
		val := "%" + filter.Search + "%"
		args = append(args, val, val)
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM guard`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting guards")
	}

	q := `SELECT ` + guardColumns + ` FROM guard` + where + orderByClause(ordering, "name ASC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := repo.db.QueryContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying guards")
	}
	defer func() { _ = rows.Close() }()

	var guards []guard.Guard
	for rows.Next() {
		var grd guard.Guard
		if err = rows.Scan(&grd.ID, &grd.SchoolID, &grd.Name, &grd.Shift, &grd.Phone, &grd.CreatedAt, &grd.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scanning guard")
		}
		guards = append(guards, grd)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "querying guards")
	}
	return guards, total, nil
}

func (repo guardRepository) UpdateGuard(ctx context.Context, grd guard.Guard) (guard.Guard, error) {
	q := repo.db.Rebind(`
UPDATE guard SET name = ?, shift = ?, phone = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q, grd.Name, grd.Shift, grd.Phone, grd.UpdatedAt, grd.SchoolID, grd.ID)
	if err != nil {
		return guard.Guard{}, errors.Wrap(err, "updating guard")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return guard.Guard{}, guard.ErrNotFound
	}
	return grd, nil
}

func (repo guardRepository) DeleteGuardsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM guard WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting guards")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo guardRepository) CreateVisitor(ctx context.Context, vis guard.Visitor) (guard.Visitor, error) {
	q := repo.db.Rebind(`
INSERT INTO visitor (school_id, guard_id, name, purpose, entered_at, left_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		vis.SchoolID, vis.GuardID, vis.Name, vis.Purpose, vis.EnteredAt, vis.LeftAt,
	).Scan(&vis.ID)
	if err != nil {
		return guard.Visitor{}, errors.Wrap(err, "inserting visitor")
	}
	return vis, nil
}

func (repo guardRepository) GetVisitorByID(ctx context.Context, schoolID, id int) (guard.Visitor, error) {
	var row visitorRow
	q := repo.db.Rebind(`SELECT ` + visitorColumns + ` FROM visitor WHERE school_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return guard.Visitor{}, guard.ErrVisitorNotFound
		}
		return guard.Visitor{}, errors.Wrap(err, "finding visitor by ID")
	}
	return row.toCore(), nil
}

func (repo guardRepository) QueryVisitors(ctx context.Context, schoolID int, filter *guard.VisitorQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]guard.Visitor, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(name ILIKE ? OR purpose ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.GuardID != 0 {
			conds = append(conds, `guard_id = ?`)
			args = append(args, filter.GuardID)
		}
		if filter.Present != nil {
			if *filter.Present {
				conds = append(conds, `left_at IS NULL`)
			} else {
				conds = append(conds, `left_at IS NOT NULL`)
			}
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM visitor`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting visitors")
	}

	q := `SELECT ` + visitorColumns + ` FROM visitor` + where + orderByClause(ordering, "entered_at DESC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []visitorRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying visitors")
	}
	visitors := make([]guard.Visitor, 0, len(rows))
	for _, row := range rows {
		visitors = append(visitors, row.toCore())
	}
	return visitors, total, nil
}

func (repo guardRepository) UpdateVisitor(ctx context.Context, vis guard.Visitor) (guard.Visitor, error) {
	q := repo.db.Rebind(`
UPDATE visitor SET name = ?, purpose = ?, left_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q, vis.Name, vis.Purpose, vis.LeftAt, vis.SchoolID, vis.ID)
	if err != nil {
		return guard.Visitor{}, errors.Wrap(err, "updating visitor")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return guard.Visitor{}, guard.ErrVisitorNotFound
	}
	return vis, nil
}
