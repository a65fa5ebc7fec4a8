package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/user"
)

type attendanceApi struct {
	svc      attendance.ServiceInterface
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc attendance.ServiceInterface,
	validate *validator.Validate,
) {
	api := attendanceApi{svc: svc, validate: validate}

	// staff take the roll call; admins can correct it
	ag := g.Group("/attendance", jwt, tenant, tenantRoleMiddleware(user.RoleSchoolAdmin, user.RoleStaff))
	ag.POST("", api.mark)
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/:id", api.retrieve)
}

// Handlers

// mark records a student's presence for a day; re-marking the same day
// overwrites the earlier value.
func (api *attendanceApi) mark(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data attendance.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []attendance.Record{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	recs, total, err := api.svc.Query(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: recs, Total: total})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.GetByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding attendance record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroyMultiple(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var query DestroyMultipleIntRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleIntRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), res.User.SchoolID.Int, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting attendance records")
	}
	return ctx.NoContent(http.StatusNoContent)
}
