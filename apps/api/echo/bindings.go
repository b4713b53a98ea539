package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const orderingParam = "ordering"

// bindOrdering reads `?ordering=name,-createdAt`, keeping only the fields listed in allowed.
func bindOrdering(ctx echo.Context, allowed map[string]string) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam), allowed)
}

// validatable is a payload that cleans and validates itself.
type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request into data then runs its validation.
func (s *Server) bindAndValidate(ctx echo.Context, data validatable, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %s", name)
	}
	return data.Validate(s.deps.Validate)
}
