package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type studentApi struct {
	svc      student.ServiceInterface
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc student.ServiceInterface,
	validate *validator.Validate,
) {
	api := studentApi{svc: svc, validate: validate}

	read := tenantRoleMiddleware(user.RoleSchoolAdmin, user.RoleStaff)
	write := tenantRoleMiddleware(user.RoleSchoolAdmin)

	sg := g.Group("/students", jwt, tenant)
	sg.GET("", api.query, read)
	sg.POST("", api.create, write)
	sg.DELETE("", api.destroyMultiple, write)
	sg.GET("/:id", api.retrieve, read)
	sg.PUT("/:id", api.update, write)
	sg.DELETE("/:id", api.destroy, write)
	sg.POST("/:id/photo", api.uploadPhoto, write)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []student.Student{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	students, total, err := api.svc.Query(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: students, Total: total})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{Student: std, PhotoURL: api.svc.PhotoURL(std)})
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(std, api.validate); err != nil {
		return err
	}

	std, err = api.svc.Update(ctx.Request().Context(), std, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), std.SchoolID, std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
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
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) uploadPhoto(ctx echo.Context) error {
	std, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("photo")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "photo", Error: "a photo file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded photo")
	}
	defer func() { _ = src.Close() }()

	std, err = api.svc.UploadPhoto(ctx.Request().Context(), std, fh.Filename, src)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{Student: std, PhotoURL: api.svc.PhotoURL(std)})
}

func (api *studentApi) getObject(ctx echo.Context) (student.Student, error) {
	res, err := getContextResolution(ctx)
	if err != nil {
		return student.Student{}, err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return student.Student{}, err
	}

	std, err := api.svc.GetByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	return std, nil
}

type StudentDetailResponse struct {
	Student  student.Student `json:"student"`
	PhotoURL string          `json:"photo_url,omitempty"`
}
