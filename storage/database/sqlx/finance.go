package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/finance"
)

const (
	feeColumns    = `id, school_id, student_id, month, amount, paid, paid_at, created_at, updated_at`
	salaryColumns = `id, school_id, staff_id, month, amount, paid, paid_at, created_at, updated_at`
)

type feeRow struct {
	ID        int       `db:"id"`
	SchoolID  int       `db:"school_id"`
	StudentID int       `db:"student_id"`
	Month     time.Time `db:"month"`
	Amount    float64   `db:"amount"`
	Paid      bool      `db:"paid"`
	PaidAt    null.Time `db:"paid_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r feeRow) toCore() finance.FeeRecord {
	return finance.FeeRecord{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		StudentID: r.StudentID,
		Month:     finance.MonthOf(r.Month),
		Amount:    r.Amount,
		Paid:      r.Paid,
		PaidAt:    r.PaidAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type salaryRow struct {
	ID        int       `db:"id"`
	SchoolID  int       `db:"school_id"`
	StaffID   int       `db:"staff_id"`
	Month     time.Time `db:"month"`
	Amount    float64   `db:"amount"`
	Paid      bool      `db:"paid"`
	PaidAt    null.Time `db:"paid_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r salaryRow) toCore() finance.SalaryRecord {
	return finance.SalaryRecord{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		StaffID:   r.StaffID,
		Month:     finance.MonthOf(r.Month),
		Amount:    r.Amount,
		Paid:      r.Paid,
		PaidAt:    r.PaidAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo financeRepository) CreateFeeRecord(ctx context.Context, rec finance.FeeRecord) (finance.FeeRecord, error) {
	q := repo.db.Rebind(`
INSERT INTO fee_record (school_id, student_id, month, amount, paid, paid_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		rec.SchoolID, rec.StudentID, rec.Month, rec.Amount, rec.Paid, rec.PaidAt,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err, "fee_record_student_id") {
			return finance.FeeRecord{}, finance.ErrFeeExists
		}
		return finance.FeeRecord{}, errors.Wrap(err, "inserting fee record")
	}
	return rec, nil
}

func (repo financeRepository) GetFeeRecordByID(ctx context.Context, schoolID, id int) (finance.FeeRecord, error) {
	var row feeRow
	q := repo.db.Rebind(`SELECT ` + feeColumns + ` FROM fee_record WHERE school_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return finance.FeeRecord{}, finance.ErrFeeNotFound
		}
		return finance.FeeRecord{}, errors.Wrap(err, "finding fee record by ID")
	}
	return row.toCore(), nil
}

func (repo financeRepository) QueryFeeRecords(ctx context.Context, schoolID int, filter *finance.FeeQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]finance.FeeRecord, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil {
		if filter.StudentID != 0 {
			conds = append(conds, `student_id = ?`)
			args = append(args, filter.StudentID)
		}
		if filter.Month != nil {
			conds = append(conds, `month = ?`)
			args = append(args, *filter.Month)
		}
		if filter.Paid != nil {
			conds = append(conds, `paid = ?`)
			args = append(args, *filter.Paid)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM fee_record`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting fee records")
	}

	q := `SELECT ` + feeColumns + ` FROM fee_record` + where + orderByClause(ordering, "month DESC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []feeRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying fee records")
	}
	records := make([]finance.FeeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toCore())
	}
	return records, total, nil
}

func (repo financeRepository) UpdateFeeRecord(ctx context.Context, rec finance.FeeRecord) (finance.FeeRecord, error) {
	q := repo.db.Rebind(`
UPDATE fee_record SET amount = ?, paid = ?, paid_at = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q, rec.Amount, rec.Paid, rec.PaidAt, rec.UpdatedAt, rec.SchoolID, rec.ID)
	if err != nil {
		return finance.FeeRecord{}, errors.Wrap(err, "updating fee record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.FeeRecord{}, finance.ErrFeeNotFound
	}
	return rec, nil
}

func (repo financeRepository) DeleteFeeRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM fee_record WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting fee records")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo financeRepository) CreateSalaryRecord(ctx context.Context, rec finance.SalaryRecord) (finance.SalaryRecord, error) {
	q := repo.db.Rebind(`
INSERT INTO salary_record (school_id, staff_id, month, amount, paid, paid_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	err := repo.db.QueryRowContext(ctx, q,
		rec.SchoolID, rec.StaffID, rec.Month, rec.Amount, rec.Paid, rec.PaidAt,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err, "salary_record_staff_id") {
			return finance.SalaryRecord{}, finance.ErrSalaryExists
		}
		return finance.SalaryRecord{}, errors.Wrap(err, "inserting salary record")
	}
	return rec, nil
}

func (repo financeRepository) GetSalaryRecordByID(ctx context.Context, schoolID, id int) (finance.SalaryRecord, error) {
	var row salaryRow
	q := repo.db.Rebind(`SELECT ` + salaryColumns + ` FROM salary_record WHERE school_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return finance.SalaryRecord{}, finance.ErrSalaryNotFound
		}
		return finance.SalaryRecord{}, errors.Wrap(err, "finding salary record by ID")
	}
	return row.toCore(), nil
}

func (repo financeRepository) QuerySalaryRecords(ctx context.Context, schoolID int, filter *finance.SalaryQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]finance.SalaryRecord, int, error) {
	conds := []string{`school_id = ?`}
	args := []interface{}{schoolID}

	if filter != nil {
		if filter.StaffID != 0 {
			conds = append(conds, `staff_id = ?`)
			args = append(args, filter.StaffID)
		}
		if filter.Month != nil {
			conds = append(conds, `month = ?`)
			args = append(args, *filter.Month)
		}
		if filter.Paid != nil {
			conds = append(conds, `paid = ?`)
			args = append(args, *filter.Paid)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM salary_record`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting salary records")
	}

	q := `SELECT ` + salaryColumns + ` FROM salary_record` + where + orderByClause(ordering, "month DESC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []salaryRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying salary records")
	}
	records := make([]finance.SalaryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toCore())
	}
	return records, total, nil
}

func (repo financeRepository) UpdateSalaryRecord(ctx context.Context, rec finance.SalaryRecord) (finance.SalaryRecord, error) {
	q := repo.db.Rebind(`
UPDATE salary_record SET amount = ?, paid = ?, paid_at = ?, updated_at = ?
WHERE school_id = ? AND id = ?`)
	res, err := repo.db.ExecContext(ctx, q, rec.Amount, rec.Paid, rec.PaidAt, rec.UpdatedAt, rec.SchoolID, rec.ID)
	if err != nil {
		return finance.SalaryRecord{}, errors.Wrap(err, "updating salary record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.SalaryRecord{}, finance.ErrSalaryNotFound
	}
	return rec, nil
}

func (repo financeRepository) DeleteSalaryRecordsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{schoolID}
	args = append(args, intsToInterfaces(ids)...)
	q := repo.db.Rebind(`DELETE FROM salary_record WHERE school_id = ? AND id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting salary records")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
