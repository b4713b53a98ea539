package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
)

// profileRoutes maps the provisioning routes to the profile kind they manage.
var profileRoutes = map[string]profile.Kind{
	"/teachers": profile.KindTeacher,
	"/students": profile.KindStudent,
	"/parents":  profile.KindParent,
}

type provisionApi struct {
	server *Server
	accSvc *account.Service
	svc    *provision.Service
}

func (s *Server) registerProvisionAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := provisionApi{
		server: s,
		accSvc: s.deps.AccountSvc,
		svc:    s.deps.ProvisionSvc,
	}

	for route, kind := range profileRoutes {
		pg := g.Group(route, jwt, adminMiddleware())
		pg.POST("", api.create(kind))
		pg.PUT("", api.update(kind))
		pg.DELETE("", api.destroy(kind))
	}
}

// sendResult writes res with okCode, or 400 when it failed.
func sendResult(ctx echo.Context, okCode int, res core.Result) error {
	if !res.Success {
		return ctx.JSON(http.StatusBadRequest, res)
	}
	return ctx.JSON(okCode, res)
}

// bindInput binds and validates a payload of kind, then checks its credentials are not taken.
func (api *provisionApi) bindInput(ctx echo.Context, kind profile.Kind) (profile.Input, error) {
	in, ok := profile.NewInput(kind)
	if !ok {
		return nil, errHttpNotFound
	}
	if err := api.server.bindAndValidate(ctx, in, string(kind)+" input"); err != nil {
		return nil, err
	}

	var excluded []string
	if id := in.Identifier(); id != "" {
		excluded = append(excluded, id)
	}
	creds := in.Credentials()
	if err := api.accSvc.CheckUniqueness(ctx.Request().Context(), creds.Username, creds.Email, excluded...); err != nil {
		return nil, err
	}
	return in, nil
}

// Handlers

func (api *provisionApi) create(kind profile.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		in, err := api.bindInput(ctx, kind)
		if err != nil {
			return err
		}
		if in.Identifier() != "" {
			return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be empty on creation"})
		}
		return sendResult(ctx, http.StatusCreated, api.svc.Create(ctx.Request().Context(), in))
	}
}

func (api *provisionApi) update(kind profile.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		in, err := api.bindInput(ctx, kind)
		if err != nil {
			return err
		}
		return sendResult(ctx, http.StatusOK, api.svc.Update(ctx.Request().Context(), in))
	}
}

func (api *provisionApi) destroy(kind profile.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var form provision.DeleteForm
		if err := ctx.Bind(&form); err != nil {
			return errors.Wrap(err, "binding to DeleteForm")
		}
		return sendResult(ctx, http.StatusOK, api.svc.Delete(ctx.Request().Context(), kind, form))
	}
}
