package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/user"
)

type staffApi struct {
	svc      staff.ServiceInterface
	validate *validator.Validate
}

func registerStaffAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc staff.ServiceInterface,
	validate *validator.Validate,
) {
	api := staffApi{svc: svc, validate: validate}

	read := tenantRoleMiddleware(user.RoleSchoolAdmin, user.RoleStaff)
	write := tenantRoleMiddleware(user.RoleSchoolAdmin)

	sg := g.Group("/staff", jwt, tenant)
	sg.GET("", api.query, read)
	sg.POST("", api.create, write)
	sg.DELETE("", api.destroyMultiple, write)
	sg.GET("/:id", api.retrieve, read)
	sg.PUT("/:id", api.update, write)
	sg.DELETE("/:id", api.destroy, write)
	sg.POST("/:id/photo", api.uploadPhoto, write)
}

// Handlers

func (api *staffApi) create(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stf, err := api.svc.Create(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return errors.Wrap(err, "creating staff member")
	}
	return ctx.JSON(http.StatusCreated, stf)
}

func (api *staffApi) query(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(staff.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []staff.Staff{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	members, total, err := api.svc.Query(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	if members == nil {
		members = []staff.Staff{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: members, Total: total})
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	stf, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StaffDetailResponse{Staff: stf, PhotoURL: api.svc.PhotoURL(stf)})
}

func (api *staffApi) update(ctx echo.Context) error {
	stf, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data staff.UpdateStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStaff")
	}
	if err := data.Validate(stf, api.validate); err != nil {
		return err
	}

	stf, err = api.svc.Update(ctx.Request().Context(), stf, data)
	if err != nil {
		return errors.Wrap(err, "updating staff member")
	}
	return ctx.JSON(http.StatusOK, stf)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	stf, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), stf.SchoolID, stf.ID); err != nil {
		return errors.Wrap(err, "deleting staff member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) destroyMultiple(ctx echo.Context) error {
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
		return errors.Wrap(err, "deleting staff")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) uploadPhoto(ctx echo.Context) error {
	stf, err := api.getObject(ctx)
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

	stf, err = api.svc.UploadPhoto(ctx.Request().Context(), stf, fh.Filename, src)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StaffDetailResponse{Staff: stf, PhotoURL: api.svc.PhotoURL(stf)})
}

func (api *staffApi) getObject(ctx echo.Context) (staff.Staff, error) {
	res, err := getContextResolution(ctx)
	if err != nil {
		return staff.Staff{}, err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return staff.Staff{}, err
	}

	stf, err := api.svc.GetByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == staff.ErrNotFound {
			return staff.Staff{}, errHttpNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff member by ID")
	}
	return stf, nil
}

type StaffDetailResponse struct {
	Staff    staff.Staff `json:"staff"`
	PhotoURL string      `json:"photo_url,omitempty"`
}
