package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/nav"
)

type navApi struct {
	resolver *nav.Resolver
}

func (s *Server) registerNavAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := navApi{resolver: s.deps.Nav}
	g.GET("/nav", api.visible, jwt)
}

// visible renders the sidebar of the caller; `?path=` marks the active item.
func (api *navApi) visible(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.resolver.Visible(claims.Role, ctx.QueryParam("path")))
}
