package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/user"
)

type classroomApi struct {
	svc      classroom.ServiceInterface
	validate *validator.Validate
}

func registerClassroomAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc classroom.ServiceInterface,
	validate *validator.Validate,
) {
	api := classroomApi{svc: svc, validate: validate}

	read := tenantRoleMiddleware(user.RoleSchoolAdmin, user.RoleStaff)
	write := tenantRoleMiddleware(user.RoleSchoolAdmin)

	cg := g.Group("/classrooms", jwt, tenant)
	cg.GET("", api.query, read)
	cg.POST("", api.create, write)
	cg.DELETE("", api.destroyMultiple, write)
	cg.GET("/:id", api.retrieve, read)
	cg.PUT("/:id", api.update, write)
	cg.DELETE("/:id", api.destroy, write)
}

// Handlers

func (api *classroomApi) create(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomApi) query(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []classroom.Classroom{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	rooms, total, err := api.svc.Query(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if rooms == nil {
		rooms = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: rooms, Total: total})
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) update(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data classroom.UpdateClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err := data.Validate(cls, api.validate); err != nil {
		return err
	}

	cls, err = api.svc.Update(ctx.Request().Context(), cls, data)
	if err != nil {
		return errors.Wrap(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) destroy(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), cls.SchoolID, cls.ID); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) destroyMultiple(ctx echo.Context) error {
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
		return errors.Wrap(err, "deleting classrooms")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) getObject(ctx echo.Context) (classroom.Classroom, error) {
	res, err := getContextResolution(ctx)
	if err != nil {
		return classroom.Classroom{}, err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return classroom.Classroom{}, err
	}

	cls, err := api.svc.GetByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return classroom.Classroom{}, errHttpNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom by ID")
	}
	return cls, nil
}
