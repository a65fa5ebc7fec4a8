package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

const schoolColumns = `id, name, email, mobile, address, logo, active,
subscription_start, subscription_end, payment_amount, last_payment_date, created_at, updated_at`

type schoolRow struct {
	ID                int          `db:"id"`
	Name              string       `db:"name"`
	Email             string       `db:"email"`
	Mobile            string       `db:"mobile"`
	Address           string       `db:"address"`
	Logo              null.String  `db:"logo"`
	Active            bool         `db:"active"`
	SubscriptionStart null.Time    `db:"subscription_start"`
	SubscriptionEnd   null.Time    `db:"subscription_end"`
	PaymentAmount     null.Float64 `db:"payment_amount"`
	LastPaymentDate   null.Time    `db:"last_payment_date"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

func (r schoolRow) toCore() school.School {
	return school.School{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Mobile:            r.Mobile,
		Address:           r.Address,
		Logo:              r.Logo,
		Active:            r.Active,
		SubscriptionStart: r.SubscriptionStart,
		SubscriptionEnd:   r.SubscriptionEnd,
		PaymentAmount:     r.PaymentAmount,
		LastPaymentDate:   r.LastPaymentDate,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) CheckSchoolNameUniqueness(ctx context.Context, name string, excludedSchools ...school.School) error {
	q := `SELECT EXISTS (SELECT 1 FROM school WHERE LOWER(name) = LOWER(?)`
	args := []interface{}{name}
	if len(excludedSchools) > 0 {
		ids := make([]int, 0, len(excludedSchools))
		for _, sch := range excludedSchools {
			ids = append(ids, sch.ID)
		}
		q += ` AND id NOT IN (` + placeholders(len(ids)) + `)`
		args = append(args, intsToInterfaces(ids)...)
	}
	q += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking school name uniqueness")
	}
	if exists {
		return school.ErrNameExists
	}
	return nil
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	q := repo.db.Rebind(`
INSERT INTO school (name, email, mobile, address, logo, active, subscription_start,
	subscription_end, payment_amount, last_payment_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		sch.Name, sch.Email, sch.Mobile, sch.Address, sch.Logo, sch.Active,
		sch.SubscriptionStart, sch.SubscriptionEnd, sch.PaymentAmount, sch.LastPaymentDate,
		sch.CreatedAt, sch.UpdatedAt,
	).Scan(&sch.ID)
	if err != nil {
		if isUniqueViolation(err, "school_name") {
			return school.School{}, school.ErrNameExists
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	var row schoolRow
	q := repo.db.Rebind(`SELECT ` + schoolColumns + ` FROM school WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "finding school by ID")
	}
	return row.toCore(), nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.School, int, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(name ILIKE ? OR email ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.Active != nil {
			conds = append(conds, `active = ?`)
			args = append(args, *filter.Active)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM school`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting schools")
	}

	q := `SELECT ` + schoolColumns + ` FROM school` + where + orderByClause(ordering, "name ASC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toCore())
	}
	return schools, total, nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	q := repo.db.Rebind(`
UPDATE school
SET name = ?, email = ?, mobile = ?, address = ?, logo = ?, active = ?,
	subscription_start = ?, subscription_end = ?, payment_amount = ?, last_payment_date = ?, updated_at = ?
WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		sch.Name, sch.Email, sch.Mobile, sch.Address, sch.Logo, sch.Active,
		sch.SubscriptionStart, sch.SubscriptionEnd, sch.PaymentAmount, sch.LastPaymentDate,
		sch.UpdatedAt, sch.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "school_name") {
			return school.School{}, school.ErrNameExists
		}
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.School{}, school.ErrNotFound
	}
	return sch, nil
}

func (repo schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := repo.db.Rebind(`DELETE FROM school WHERE id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, intsToInterfaces(ids)...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting schools")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
