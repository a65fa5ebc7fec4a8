// Package access decides what an authenticated principal may see and where it
// belongs. It is the single home for the gate and the role router; the HTTP
// layer and the dashboard endpoints all call into it rather than re-deriving
// subscription state themselves.
package access

import (
	"fmt"
	"time"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// Outcome of an access evaluation.
type Outcome string

const (
	// Allow lets the request through untouched.
	Allow Outcome = "allow"
	// AllowWithWarning lets the dashboard load but tells the frontend to
	// overlay a blocking payment prompt (dismissible only via an explicit
	// "pay later" acknowledgement). The gate is advisory unless
	// Access.EnforceAtDataLayer is set.
	AllowWithWarning Outcome = "allow_with_warning"
	// Deny redirects; RedirectPath tells where.
	Deny Outcome = "deny"
)

// Canonical frontend paths.
const (
	PathLogin              = "/login"
	PathSuperuserDashboard = "/dashboard/superuser"
	PathSchoolDashboard    = "/dashboard/school"
	PathStaffDashboard     = "/dashboard/staff"
	PathStudentDashboard   = "/dashboard/student"
	// guards have no dashboard of their own; their home is the visitor log
	PathVisitorLog = "/visitors"
	PathProfile    = "/profile"
)

type Decision struct {
	Outcome      Outcome                    `json:"outcome"`
	RedirectPath string                     `json:"redirect_path,omitempty"`
	Status       *school.SubscriptionStatus `json:"subscription,omitempty"` // tenant roles only
}

// Evaluate decides whether a resolved {role, tenant} may use the product at
// the given instant. The subscription status is recomputed here on every call;
// a cached Active=true would wrongly grant access past expiry.
func Evaluate(role user.Role, sch *school.School, now time.Time) Decision {
	if role == user.RoleSuperuser {
		// no tenant, no subscription to check
		return Decision{Outcome: Allow}
	}
	if !role.Valid() || sch == nil {
		return Decision{Outcome: Deny, RedirectPath: PathLogin}
	}

	st := school.ComputeSubscriptionStatus(*sch, now)
	if !st.Active {
		return Decision{Outcome: AllowWithWarning, Status: &st}
	}
	return Decision{Outcome: Allow, Status: &st}
}

// EvaluatePage is Evaluate plus a page's role restriction. A principal on the
// wrong page is sent to its own dashboard root, never to login: "wrong place"
// is not "not logged in".
func EvaluatePage(required user.Role, res user.Resolution, now time.Time) Decision {
	if res.User.Role != required {
		return Decision{Outcome: Deny, RedirectPath: CanonicalDashboardPath(res.User.Role)}
	}
	return Evaluate(res.User.Role, res.School, now)
}

// CanonicalDashboardPath maps a role to its home destination. Unknown or
// unset roles go to login. The mapping is pure and idempotent: landing on the
// returned path never triggers another redirect.
func CanonicalDashboardPath(role user.Role) string {
	switch role {
	case user.RoleSuperuser:
		return PathSuperuserDashboard
	case user.RoleSchoolAdmin:
		return PathSchoolDashboard
	case user.RoleStaff:
		return PathStaffDashboard
	case user.RoleStudent:
		return PathStudentDashboard
	case user.RoleGuard:
		return PathVisitorLog
	}
	return PathLogin
}

// ProfilePath returns where the generic "my profile" surface should take a
// user: staff and students with a linked record go straight to that record's
// detail view; everyone else (including staff/students whose link was never
// populated) stays on the generic profile.
func ProfilePath(usr user.User) string {
	switch usr.Role {
	case user.RoleStaff:
		if usr.StaffID.Valid {
			return fmt.Sprintf("/staff/%d", usr.StaffID.Int)
		}
	case user.RoleStudent:
		if usr.StudentID.Valid {
			return fmt.Sprintf("/students/%d", usr.StudentID.Int)
		}
	}
	return PathProfile
}
