package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

const userColumns = `id, name, username, email, role, school_id, staff_id, student_id,
guard_id, is_active, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	SchoolID     null.Int    `db:"school_id"`
	StaffID      null.Int    `db:"staff_id"`
	StudentID    null.Int    `db:"student_id"`
	GuardID      null.Int    `db:"guard_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) toCore() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		SchoolID:     r.SchoolID,
		StaffID:      r.StaffID,
		StudentID:    r.StudentID,
		GuardID:      r.GuardID,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	conds := `(email = ?`
	args := []interface{}{email}
	if username != "" {
		conds += ` OR username = ?`
		args = append(args, username)
	}
	conds += `)`
	if len(excludedUsers) > 0 {
		ph := ""
		for i, u := range excludedUsers {
			if i > 0 {
				ph += ","
			}
			ph += "?"
			args = append(args, u.ID)
		}
		conds += ` AND id NOT IN (` + ph + `)`
	}

	var rows []userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE ` + conds)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Email == email {
			return user.ErrEmailExists
		}
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := repo.db.Rebind(`
INSERT INTO "user" (id, name, username, email, role, school_id, staff_id, student_id,
	guard_id, is_active, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Username, usr.Email, string(usr.Role),
		usr.SchoolID, usr.StaffID, usr.StudentID, usr.GuardID,
		usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "user_username") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "user_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var cond string
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		cond = `id = ?`
		args = append(args, filter.ID)
	case filter.Username != "":
		cond = `username = ?`
		args = append(args, filter.Username)
	case filter.Email != "":
		cond = `email = ?`
		args = append(args, filter.Email)
	case filter.UsernameOrEmail != nil:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		cond = `(username = ? OR email = ?)`
		args = append(args, uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE ` + cond)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return row.toCore(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]user.User, int, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		if filter.Role != "" {
			conds = append(conds, `role = ?`)
			args = append(args, string(filter.Role))
		}
		if filter.SchoolID != 0 {
			conds = append(conds, `school_id = ?`)
			args = append(args, filter.SchoolID)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(`SELECT COUNT(*) FROM "user"`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	q := `SELECT ` + userColumns + ` FROM "user"` + where + orderByClause(ordering, "created_at DESC") + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toCore())
	}
	return users, total, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.db.Rebind(`
UPDATE "user"
SET name = ?, username = ?, email = ?, is_active = ?, password_hash = ?, updated_at = ?, last_login = ?
WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		usr.Name, usr.Username, usr.Email, usr.IsActive, usr.PasswordHash,
		usr.UpdatedAt, null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()), usr.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "user_username") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "user_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	q := repo.db.Rebind(`DELETE FROM "user" WHERE id IN (` + placeholders(len(ids)) + `)`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ResolveUser loads the user row and its school in one joined read.
func (repo userRepository) ResolveUser(ctx context.Context, id string) (user.User, *school.School, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, nil, user.ErrNotFound
	}

	var row struct {
		userRow
		Sch struct {
			ID                null.Int     `db:"id"`
			Name              null.String  `db:"name"`
			Email             null.String  `db:"email"`
			Mobile            null.String  `db:"mobile"`
			Address           null.String  `db:"address"`
			Logo              null.String  `db:"logo"`
			Active            null.Bool    `db:"active"`
			SubscriptionStart null.Time    `db:"subscription_start"`
			SubscriptionEnd   null.Time    `db:"subscription_end"`
			PaymentAmount     null.Float64 `db:"payment_amount"`
			LastPaymentDate   null.Time    `db:"last_payment_date"`
			CreatedAt         null.Time    `db:"created_at"`
			UpdatedAt         null.Time    `db:"updated_at"`
		} `db:"sch"`
	}

	q := repo.db.Rebind(`
SELECT u.id, u.name, u.username, u.email, u.role, u.school_id, u.staff_id, u.student_id,
	u.guard_id, u.is_active, u.password_hash, u.created_at, u.updated_at, u.last_login,
	s.id AS "sch.id", s.name AS "sch.name", s.email AS "sch.email", s.mobile AS "sch.mobile",
	s.address AS "sch.address", s.logo AS "sch.logo", s.active AS "sch.active",
	s.subscription_start AS "sch.subscription_start", s.subscription_end AS "sch.subscription_end",
	s.payment_amount AS "sch.payment_amount", s.last_payment_date AS "sch.last_payment_date",
	s.created_at AS "sch.created_at", s.updated_at AS "sch.updated_at"
FROM "user" u
LEFT JOIN school s ON s.id = u.school_id
WHERE u.id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, nil, user.ErrNotFound
		}
		return user.User{}, nil, errors.Wrap(err, "resolving user")
	}

	usr := row.userRow.toCore()
	if !row.Sch.ID.Valid {
		return usr, nil, nil
	}
	sch := &school.School{
		ID:                row.Sch.ID.Int,
		Name:              row.Sch.Name.String,
		Email:             row.Sch.Email.String,
		Mobile:            row.Sch.Mobile.String,
		Address:           row.Sch.Address.String,
		Logo:              row.Sch.Logo,
		Active:            row.Sch.Active.Bool,
		SubscriptionStart: row.Sch.SubscriptionStart,
		SubscriptionEnd:   row.Sch.SubscriptionEnd,
		PaymentAmount:     row.Sch.PaymentAmount,
		LastPaymentDate:   row.Sch.LastPaymentDate,
		CreatedAt:         row.Sch.CreatedAt.Time,
		UpdatedAt:         row.Sch.UpdatedAt.Time,
	}
	return usr, sch, nil
}
