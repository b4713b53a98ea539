package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
)

type academicsApi struct {
	server *Server
	svc    *academics.Service
}

func (s *Server) registerAcademicsAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := academicsApi{server: s, svc: s.deps.AcademicsSvc}

	sg := g.Group("/subjects", jwt, adminMiddleware())
	sg.POST("", mutation(api.server, "SubjectInput", http.StatusCreated, api.svc.CreateSubject))
	sg.PUT("", mutation(api.server, "SubjectInput", http.StatusOK, api.svc.UpdateSubject))
	sg.DELETE("", api.destroy(api.svc.DeleteSubject))

	cg := g.Group("/classes", jwt, adminMiddleware())
	cg.POST("", mutation(api.server, "ClassInput", http.StatusCreated, api.svc.CreateClass))
	cg.PUT("", mutation(api.server, "ClassInput", http.StatusOK, api.svc.UpdateClass))
	cg.DELETE("", api.destroy(api.svc.DeleteClass))

	lg := g.Group("/lessons", jwt, adminMiddleware())
	lg.POST("", mutation(api.server, "LessonInput", http.StatusCreated, api.svc.CreateLesson))
	lg.PUT("", mutation(api.server, "LessonInput", http.StatusOK, api.svc.UpdateLesson))
	lg.DELETE("", api.destroy(api.svc.DeleteLesson))

	eg := g.Group("/exams", jwt, adminMiddleware())
	eg.POST("", mutation(api.server, "ExamInput", http.StatusCreated, api.svc.CreateExam))
	eg.PUT("", mutation(api.server, "ExamInput", http.StatusOK, api.svc.UpdateExam))
	eg.DELETE("", api.destroy(api.svc.DeleteExam))
}

// mutation returns a handler binding an input of type T and passing it to apply.
func mutation[T any, PT interface {
	*T
	validatable
}](s *Server, name string, okCode int, apply func(ctx context.Context, in T) core.Result) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		in := PT(new(T))
		if err := s.bindAndValidate(ctx, in, name); err != nil {
			return err
		}
		return sendResult(ctx, okCode, apply(ctx.Request().Context(), *in))
	}
}

func (api *academicsApi) destroy(apply func(ctx context.Context, form academics.DeleteForm) core.Result) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var form academics.DeleteForm
		if err := ctx.Bind(&form); err != nil {
			return errors.Wrap(err, "binding to DeleteForm")
		}
		return sendResult(ctx, http.StatusOK, apply(ctx.Request().Context(), form))
	}
}
