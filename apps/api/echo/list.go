package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/profile"
)

const listPrefix = "/list/"

// loader queries one listing from the request filters.
type loader func(ctx echo.Context) (interface{}, error)

type listApi struct {
	cache   core.ListCache
	logger  core.Logger
	loaders map[string]loader
}

func (s *Server) registerListAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := listApi{
		cache:  s.deps.Cache,
		logger: s.deps.Logger,
	}
	profiles, acad := s.deps.Profiles, s.deps.AcademicsSvc
	api.loaders = map[string]loader{
		core.ListTeachersPath: func(ctx echo.Context) (interface{}, error) {
			var f profile.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, profile.OrderingFields); err != nil {
				return nil, err
			}
			items, err := profiles.QueryTeachers(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying teachers")
		},
		core.ListStudentsPath: func(ctx echo.Context) (interface{}, error) {
			var f profile.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, profile.OrderingFields); err != nil {
				return nil, err
			}
			items, err := profiles.QueryStudents(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying students")
		},
		core.ListParentsPath: func(ctx echo.Context) (interface{}, error) {
			var f profile.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, profile.OrderingFields); err != nil {
				return nil, err
			}
			items, err := profiles.QueryParents(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying parents")
		},
		core.ListSubjectsPath: func(ctx echo.Context) (interface{}, error) {
			var f academics.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, academics.SubjectOrderingFields); err != nil {
				return nil, err
			}
			items, err := acad.QuerySubjects(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying subjects")
		},
		core.ListClassesPath: func(ctx echo.Context) (interface{}, error) {
			var f academics.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, academics.ClassOrderingFields); err != nil {
				return nil, err
			}
			items, err := acad.QueryClasses(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying classes")
		},
		core.ListLessonsPath: func(ctx echo.Context) (interface{}, error) {
			var f academics.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, academics.LessonOrderingFields); err != nil {
				return nil, err
			}
			items, err := acad.QueryLessons(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying lessons")
		},
		core.ListExamsPath: func(ctx echo.Context) (interface{}, error) {
			var f academics.QueryFilter
			if err := bindListFilter(ctx, &f, &f.QueryFilter, academics.ExamOrderingFields); err != nil {
				return nil, err
			}
			items, err := acad.QueryExams(ctx.Request().Context(), f)
			return nonNil(items), errors.Wrap(err, "querying exams")
		},
		core.ListGradesPath: func(ctx echo.Context) (interface{}, error) {
			items, err := acad.QueryGrades(ctx.Request().Context())
			return nonNil(items), errors.Wrap(err, "querying grades")
		},
	}

	g.GET("/list/:resource", api.list, jwt, api.knownResource, navMiddleware(s.deps.Nav, listPath))
}

func listPath(ctx echo.Context) string {
	return listPrefix + ctx.Param("resource")
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// bindListFilter binds the query string into filter and parses `?ordering=` against allowed.
func bindListFilter(ctx echo.Context, filter interface{}, common *core.QueryFilter, allowed map[string]string) error {
	if err := ctx.Bind(filter); err != nil { // GET binds the query string
		return errors.Wrap(err, "binding listing filter")
	}
	common.Ordering = bindOrdering(ctx, allowed)
	common.Clean()
	return nil
}

func (api *listApi) knownResource(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, ok := api.loaders[listPath(ctx)]; !ok {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

// list serves a listing from the cache, loading and storing it on a miss.
// Cache failures are logged and the listing is served from the store.
func (api *listApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	path := listPath(ctx)
	variant := string(claims.Role) + "?" + ctx.QueryString()
	reqCtx := ctx.Request().Context()

	if api.cache != nil {
		data, ok, err := api.cache.Get(reqCtx, path, variant)
		if err != nil {
			api.logger.Warn("listing cache get: "+err.Error(), err)
		} else if ok {
			return ctx.JSONBlob(http.StatusOK, data)
		}
	}

	items, err := api.loaders[path](ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "marshalling listing")
	}

	if api.cache != nil {
		if err = api.cache.Set(reqCtx, path, variant, data); err != nil {
			api.logger.Warn("listing cache set: "+err.Error(), err)
		}
	}
	return ctx.JSONBlob(http.StatusOK, data)
}
