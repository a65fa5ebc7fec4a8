package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type dashboardApi struct {
	svc dashboard.ServiceInterface
}

func registerDashboardAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc dashboard.ServiceInterface,
) {
	api := dashboardApi{svc: svc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/superuser", api.superuser, superuserMiddleware())
	dg.GET("", api.stats, tenant)
}

// Handlers

func (api *dashboardApi) superuser(ctx echo.Context) error {
	stats, err := api.svc.Superuser(ctx.Request().Context())
	if err != nil {
		// dashboard.ErrUnavailable must stay the cause for the 503 mapping
		return err
	}
	return ctx.JSON(http.StatusOK, DashboardResponse{Outcome: access.Allow, Superuser: &stats})
}

// stats builds the landing read model for the tenant roles. The gate already
// ran in tenantMiddleware; the decision is re-derived here so the response can
// carry the payment-prompt flag alongside the numbers.
func (api *dashboardApi) stats(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	dec := access.Evaluate(res.User.Role, res.School, time.Now())

	resp := DashboardResponse{
		Outcome:      dec.Outcome,
		Subscription: dec.Status,
		Home:         access.CanonicalDashboardPath(res.User.Role),
	}

	rc := ctx.Request().Context()
	schoolID := res.User.SchoolID.Int

	switch res.User.Role {
	case user.RoleSchoolAdmin:
		stats, err := api.svc.Admin(rc, schoolID)
		if err != nil {
			return errors.Wrap(err, "building admin dashboard")
		}
		resp.Admin = &stats

	case user.RoleStaff:
		staffID, ok := res.User.LinkedRecordID()
		if !ok {
			// account exists but the staff record was never linked
			resp.Redirect = access.PathProfile
			break
		}
		stats, err := api.svc.Staff(rc, schoolID, staffID)
		if err != nil {
			return errors.Wrap(err, "building staff dashboard")
		}
		resp.Staff = &stats

	case user.RoleStudent:
		studentID, ok := res.User.LinkedRecordID()
		if !ok {
			resp.Redirect = access.PathProfile
			break
		}
		stats, err := api.svc.Student(rc, schoolID, studentID)
		if err != nil {
			return errors.Wrap(err, "building student dashboard")
		}
		resp.Student = &stats

	case user.RoleGuard:
		// guards have no stats; their home is the visitor log
		resp.Redirect = access.PathVisitorLog
	}

	return ctx.JSON(http.StatusOK, resp)
}

// DashboardResponse carries exactly one stats block, picked by the caller's
// role, plus the routing hints the frontend needs.
type DashboardResponse struct {
	Outcome      access.Outcome             `json:"outcome"`
	Home         string                     `json:"home,omitempty"`
	Redirect     string                     `json:"redirect,omitempty"`
	Subscription *school.SubscriptionStatus `json:"subscription,omitempty"`

	Superuser *dashboard.SuperuserStats `json:"superuser,omitempty"`
	Admin     *dashboard.AdminStats     `json:"admin,omitempty"`
	Staff     *dashboard.StaffStats     `json:"staff,omitempty"`
	Student   *dashboard.StudentStats   `json:"student,omitempty"`
}
