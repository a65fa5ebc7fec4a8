package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/user"
)

// superuserMiddleware restricts an endpoint to superusers. Everyone else is
// sent to their own dashboard root, not to login: they are authenticated, just
// in the wrong place.
func superuserMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role != user.RoleSuperuser {
				return redirectError(http.StatusForbidden, "permission denied", access.CanonicalDashboardPath(claims.Role))
			}
			return next(ctx)
		}
	}
}

// adminMiddleware allows superusers and school admins through.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			switch claims.Role {
			case user.RoleSuperuser, user.RoleSchoolAdmin:
				return next(ctx)
			}
			return redirectError(http.StatusForbidden, "permission denied", access.CanonicalDashboardPath(claims.Role))
		}
	}
}

// tenantMiddleware resolves the principal and runs the subscription gate on
// every request. The decision is recomputed each time; a token minted while
// the subscription was current must not keep working past expiry.
func tenantMiddleware(svc user.ServiceInterface, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			res, err := svc.Resolve(ctx.Request().Context(), claims.Subject)
			if err != nil {
				return err
			}
			if !res.User.IsActive {
				return errAccountDeactivated
			}

			dec := access.Evaluate(res.User.Role, res.School, time.Now())
			if dec.Outcome == access.Deny {
				return redirectError(http.StatusUnauthorized, "user not authenticated", dec.RedirectPath)
			}
			if dec.Outcome == access.AllowWithWarning && conf.Access.EnforceAtDataLayer && isMutation(ctx.Request().Method) {
				return errSubscriptionExpired
			}

			ctx.Set(contextUserKey, res.User)
			ctx.Set(contextResolutionKey, res)
			return next(ctx)
		}
	}
}

// tenantRoleMiddleware restricts an endpoint to the given tenant roles. It
// must run after tenantMiddleware.
func tenantRoleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			res, err := getContextResolution(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context resolution")
			}
			for _, role := range roles {
				if res.User.Role == role {
					return next(ctx)
				}
			}
			return redirectError(http.StatusForbidden, "permission denied", access.CanonicalDashboardPath(res.User.Role))
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
