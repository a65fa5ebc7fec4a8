package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Role is the single role a User holds. It determines which optional link
// field must be populated and which dashboard the user lands on.
type Role string

const (
	RoleSuperuser   Role = "superuser"
	RoleSchoolAdmin Role = "school_admin"
	RoleStaff       Role = "staff"
	RoleStudent     Role = "student"
	RoleGuard       Role = "guard"
)

var AllRoles = []Role{RoleSuperuser, RoleSchoolAdmin, RoleStaff, RoleStudent, RoleGuard}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperuser, RoleSchoolAdmin, RoleStaff, RoleStudent, RoleGuard:
		return true
	}
	return false
}

// RequiresTenant reports whether the role must be linked to a School.
// Only superusers operate outside any tenant.
func (r Role) RequiresTenant() bool {
	return r != RoleSuperuser
}

type User struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Username null.String `json:"username"` // some users authenticate by email only
	Email    string      `json:"email"`
	Role     Role        `json:"role"`

	// tenant scope; null only for superusers
	SchoolID null.Int `json:"school_id"`

	// per-role record link; exactly the one matching Role is set
	StaffID   null.Int `json:"staff_id"`
	StudentID null.Int `json:"student_id"`
	GuardID   null.Int `json:"guard_id"`

	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsSuperuser() bool   { return u.Role == RoleSuperuser }
func (u User) IsSchoolAdmin() bool { return u.Role == RoleSchoolAdmin }
func (u User) IsStaff() bool       { return u.Role == RoleStaff }
func (u User) IsStudent() bool     { return u.Role == RoleStudent }
func (u User) IsGuard() bool       { return u.Role == RoleGuard }

// LinkedRecordID returns the id of the staff/student/guard record the user's
// role points at, if the role has one and it is set.
func (u User) LinkedRecordID() (int, bool) {
	switch u.Role {
	case RoleStaff:
		return u.StaffID.Int, u.StaffID.Valid
	case RoleStudent:
		return u.StudentID.Int, u.StudentID.Valid
	case RoleGuard:
		return u.GuardID.Int, u.GuardID.Valid
	}
	return 0, false
}

// NewUser contains information needed to create a new User.
// Role is immutable after creation; there is no role-change path.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"required,knownrole"`
	SchoolID        int    `json:"school_id"`
	StaffID         int    `json:"staff_id"`
	StudentID       int    `json:"student_id"`
	GuardID         int    `json:"guard_id"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing
// User. Role and the record links are absent on purpose.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(orig User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = orig.Username.String
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, orig)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     Role   `query:"role"`
	SchoolID int    `query:"school_id"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.SchoolID == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single user; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}
