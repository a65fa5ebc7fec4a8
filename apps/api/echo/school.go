package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type schoolApi struct {
	svc      school.ServiceInterface
	usrSvc   user.ServiceInterface
	logger   core.Logger
	validate *validator.Validate
}

// registerSchoolAPI mounts the tenant administration surface. Management is
// superuser-only; "/schools/me" is the tenant's read-only view of itself.
func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	tenant echo.MiddlewareFunc,
	svc school.ServiceInterface,
	usrSvc user.ServiceInterface,
	logger core.Logger,
	validate *validator.Validate,
) {
	api := schoolApi{
		svc:      svc,
		usrSvc:   usrSvc,
		logger:   logger,
		validate: validate,
	}

	mg := g.Group("/schools/me", jwt, tenant)
	mg.GET("", api.mine)
	mg.GET("/subscription", api.mySubscription)

	sg := g.Group("/schools", jwt, superuserMiddleware())
	sg.POST("", api.register)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/subscription", api.subscription)
	dg.POST("/renew", api.renew)
	dg.POST("/activate", api.activate)
	dg.POST("/deactivate", api.deactivate)
	dg.POST("/logo", api.uploadLogo)
}

// Handlers

// register creates the tenant and its first admin account in one call. The
// two writes are not transactional across services, so a failed admin create
// compensates by deleting the fresh school; best effort, logged if it fails.
func (api *schoolApi) register(ctx echo.Context) error {
	var data RegisterSchoolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterSchoolRequest")
	}

	if err := data.School.Validate(api.validate, api.svc); err != nil {
		return err
	}

	rc := ctx.Request().Context()
	sch, err := api.svc.Create(rc, data.School)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	compensate := func() {
		if dErr := api.svc.Delete(rc, sch.ID); dErr != nil {
			api.logger.Error(
				fmt.Sprintf("compensating school delete failed; school %d is orphaned", sch.ID),
				errors.Wrap(dErr, "deleting school"),
			)
		}
	}

	// the admin's tenant link only exists once the school row does, so its
	// validation has to run after the create
	data.Admin.Role = user.RoleSchoolAdmin
	data.Admin.SchoolID = sch.ID
	if err := data.Admin.Validate(api.validate, api.usrSvc); err != nil {
		compensate()
		return err
	}

	adm, err := api.usrSvc.Create(rc, data.Admin)
	if err != nil {
		compensate()
		return errors.Wrap(err, "creating school admin")
	}

	return ctx.JSON(http.StatusCreated, RegisterSchoolResponse{School: sch, Admin: adm})
}

func (api *schoolApi) query(ctx echo.Context) error {
	filter := new(school.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []school.School{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	schools, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: schools, Total: total})
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SchoolDetailResponse{
		School:  sch,
		Status:  api.svc.Status(sch),
		LogoURL: api.svc.LogoURL(sch),
	})
}

func (api *schoolApi) update(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(sch, api.validate, api.svc); err != nil {
		return err
	}

	sch, err = api.svc.Update(ctx.Request().Context(), sch, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleIntRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleIntRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) mine(ctx echo.Context) error {
	sch, err := api.getOwnSchool(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SchoolDetailResponse{
		School:  sch,
		Status:  api.svc.Status(sch),
		LogoURL: api.svc.LogoURL(sch),
	})
}

func (api *schoolApi) mySubscription(ctx echo.Context) error {
	sch, err := api.getOwnSchool(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Status(sch))
}

func (api *schoolApi) getOwnSchool(ctx echo.Context) (school.School, error) {
	res, err := getContextResolution(ctx)
	if err != nil {
		return school.School{}, errors.Wrap(err, "getting context resolution")
	}
	// superusers have no school of their own
	if res.School == nil {
		return school.School{}, errHttpNotFound
	}
	return *res.School, nil
}

func (api *schoolApi) subscription(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Status(sch))
}

func (api *schoolApi) renew(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data school.RenewSubscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenewSubscription")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Renew(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renewing subscription")
	}
	return ctx.JSON(http.StatusOK, SchoolDetailResponse{
		School:  sch,
		Status:  api.svc.Status(sch),
		LogoURL: api.svc.LogoURL(sch),
	})
}

func (api *schoolApi) activate(ctx echo.Context) error {
	return api.setActive(ctx, true)
}

func (api *schoolApi) deactivate(ctx echo.Context) error {
	return api.setActive(ctx, false)
}

func (api *schoolApi) setActive(ctx echo.Context, active bool) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	sch, err := api.svc.SetActive(ctx.Request().Context(), id, active)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling school")
	}
	return ctx.JSON(http.StatusOK, SchoolDetailResponse{
		School:  sch,
		Status:  api.svc.Status(sch),
		LogoURL: api.svc.LogoURL(sch),
	})
}

func (api *schoolApi) uploadLogo(ctx echo.Context) error {
	sch, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("logo")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "logo", Error: "a logo file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded logo")
	}
	defer func() { _ = src.Close() }()

	sch, err = api.svc.UploadLogo(ctx.Request().Context(), sch, fh.Filename, src)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SchoolDetailResponse{
		School:  sch,
		Status:  api.svc.Status(sch),
		LogoURL: api.svc.LogoURL(sch),
	})
}

func (api *schoolApi) getObject(ctx echo.Context) (school.School, error) {
	id, err := intParam(ctx, "id")
	if err != nil {
		return school.School{}, err
	}
	sch, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.School{}, errHttpNotFound
		}
		return school.School{}, errors.Wrap(err, "finding school by ID")
	}
	return sch, nil
}

type (
	RegisterSchoolRequest struct {
		School school.NewSchool `json:"school"`
		Admin  user.NewUser     `json:"admin"`
	}

	RegisterSchoolResponse struct {
		School school.School `json:"school"`
		Admin  user.User     `json:"admin"`
	}

	SchoolDetailResponse struct {
		School  school.School             `json:"school"`
		Status  school.SubscriptionStatus `json:"subscription"`
		LogoURL string                    `json:"logo_url,omitempty"`
	}

	DestroyMultipleIntRequest struct {
		IDs []int `query:"id"`
	}
)
