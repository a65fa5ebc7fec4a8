package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/guard"
	"github.com/trezcool/shule/core/user"
)

type guardApi struct {
	svc      guard.ServiceInterface
	validate *validator.Validate
}

func registerGuardAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc guard.ServiceInterface,
	validate *validator.Validate,
) {
	api := guardApi{svc: svc, validate: validate}

	gate := tenantRoleMiddleware(user.RoleSchoolAdmin, user.RoleGuard)
	write := tenantRoleMiddleware(user.RoleSchoolAdmin)

	gg := g.Group("/guards", jwt, tenant)
	gg.GET("", api.query, gate)
	gg.POST("", api.create, write)
	gg.DELETE("", api.destroyMultiple, write)
	gg.GET("/:id", api.retrieve, gate)
	gg.PUT("/:id", api.update, write)
	gg.DELETE("/:id", api.destroy, write)
	gg.POST("/:id/visitors", api.signInVisitor, gate)

	vg := g.Group("/visitors", jwt, tenant, gate)
	vg.GET("", api.queryVisitors)
	vg.POST("/:id/sign-out", api.signOutVisitor)
}

// Handlers

func (api *guardApi) create(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data guard.NewGuard
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGuard")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Create(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return errors.Wrap(err, "creating guard")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *guardApi) query(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(guard.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []guard.Guard{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	guards, total, err := api.svc.Query(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying guards")
	}
	if guards == nil {
		guards = []guard.Guard{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: guards, Total: total})
}

func (api *guardApi) retrieve(ctx echo.Context) error {
	grd, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *guardApi) update(ctx echo.Context) error {
	grd, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data guard.UpdateGuard
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGuard")
	}
	if err := data.Validate(grd, api.validate); err != nil {
		return err
	}

	grd, err = api.svc.Update(ctx.Request().Context(), grd, data)
	if err != nil {
		return errors.Wrap(err, "updating guard")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *guardApi) destroy(ctx echo.Context) error {
	grd, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), grd.SchoolID, grd.ID); err != nil {
		return errors.Wrap(err, "deleting guard")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *guardApi) destroyMultiple(ctx echo.Context) error {
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
		return errors.Wrap(err, "deleting guards")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// signInVisitor opens a gate-log entry attributed to the guard in the path.
func (api *guardApi) signInVisitor(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	guardID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data guard.NewVisitor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVisitor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	vis, err := api.svc.SignInVisitor(ctx.Request().Context(), res.User.SchoolID.Int, guardID, data)
	if err != nil {
		if errors.Cause(err) == guard.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "signing in visitor")
	}
	return ctx.JSON(http.StatusCreated, vis)
}

func (api *guardApi) signOutVisitor(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	vis, err := api.svc.SignOutVisitor(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == guard.ErrVisitorNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, vis)
}

func (api *guardApi) queryVisitors(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(guard.VisitorQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []guard.Visitor{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	visitors, total, err := api.svc.QueryVisitors(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying visitors")
	}
	if visitors == nil {
		visitors = []guard.Visitor{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: visitors, Total: total})
}

func (api *guardApi) getObject(ctx echo.Context) (guard.Guard, error) {
	res, err := getContextResolution(ctx)
	if err != nil {
		return guard.Guard{}, err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return guard.Guard{}, err
	}

	grd, err := api.svc.GetByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == guard.ErrNotFound {
			return guard.Guard{}, errHttpNotFound
		}
		return guard.Guard{}, errors.Wrap(err, "finding guard by ID")
	}
	return grd, nil
}
