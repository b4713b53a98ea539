package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/nav"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role == account.RoleAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// navMiddleware only lets through callers whose sidebar shows the route returned by href.
func navMiddleware(resolver *nav.Resolver, href func(ctx echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if resolver.Allows(claims.Role, href(ctx)) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
