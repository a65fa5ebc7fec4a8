package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/user"
)

type financeApi struct {
	svc      finance.ServiceInterface
	validate *validator.Validate
}

// registerFinanceAPI mounts fee and salary ledgers; school admins only.
func registerFinanceAPI(
	g *echo.Group,
	jwt, tenant echo.MiddlewareFunc,
	svc finance.ServiceInterface,
	validate *validator.Validate,
) {
	api := financeApi{svc: svc, validate: validate}

	admin := tenantRoleMiddleware(user.RoleSchoolAdmin)

	fg := g.Group("/fees", jwt, tenant, admin)
	fg.POST("", api.createFee)
	fg.GET("", api.queryFees)
	fg.DELETE("", api.destroyFees)
	fg.GET("/:id", api.retrieveFee)
	fg.POST("/:id/pay", api.payFee)

	sg := g.Group("/salaries", jwt, tenant, admin)
	sg.POST("", api.createSalary)
	sg.GET("", api.querySalaries)
	sg.DELETE("", api.destroySalaries)
	sg.GET("/:id", api.retrieveSalary)
	sg.POST("/:id/pay", api.paySalary)
}

// Fee handlers

func (api *financeApi) createFee(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data finance.NewFeeRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.CreateFee(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *financeApi) queryFees(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(finance.FeeQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []finance.FeeRecord{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	recs, total, err := api.svc.QueryFees(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying fee records")
	}
	if recs == nil {
		recs = []finance.FeeRecord{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: recs, Total: total})
}

func (api *financeApi) retrieveFee(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.GetFeeByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == finance.ErrFeeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding fee record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *financeApi) payFee(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.MarkFeePaid(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == finance.ErrFeeNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *financeApi) destroyFees(ctx echo.Context) error {
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
	if err := api.svc.DeleteFees(ctx.Request().Context(), res.User.SchoolID.Int, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting fee records")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Salary handlers

func (api *financeApi) createSalary(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	var data finance.NewSalaryRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSalaryRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.CreateSalary(ctx.Request().Context(), res.User.SchoolID.Int, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *financeApi) querySalaries(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}

	filter := new(finance.SalaryQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, ListResponse{Items: []finance.SalaryRecord{}})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := new(Page)
	page.Bind(ctx)

	recs, total, err := api.svc.QuerySalaries(ctx.Request().Context(), res.User.SchoolID.Int, filter, ordering.Orderings, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying salary records")
	}
	if recs == nil {
		recs = []finance.SalaryRecord{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Items: recs, Total: total})
}

func (api *financeApi) retrieveSalary(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.GetSalaryByID(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == finance.ErrSalaryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding salary record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *financeApi) paySalary(ctx echo.Context) error {
	res, err := getContextResolution(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	rec, err := api.svc.MarkSalaryPaid(ctx.Request().Context(), res.User.SchoolID.Int, id)
	if err != nil {
		if errors.Cause(err) == finance.ErrSalaryNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *financeApi) destroySalaries(ctx echo.Context) error {
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
	if err := api.svc.DeleteSalaries(ctx.Request().Context(), res.User.SchoolID.Int, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting salary records")
	}
	return ctx.NoContent(http.StatusNoContent)
}
