package core

import "context"

// Listing routes refreshed after a mutation.
const (
	ListTeachersPath = "/list/teachers"
	ListStudentsPath = "/list/students"
	ListParentsPath  = "/list/parents"
	ListSubjectsPath = "/list/subjects"
	ListClassesPath  = "/list/classes"
	ListLessonsPath  = "/list/lessons"
	ListExamsPath    = "/list/exams"
	ListGradesPath   = "/list/grades"
)

type (
	// Invalidator signals the presentation layer that the views served under a route must be refetched.
	Invalidator interface {
		Invalidate(ctx context.Context, paths ...string) error
	}

	// ListCache stores rendered listings per route. Entries of a route become stale once it is invalidated.
	ListCache interface {
		Invalidator
		Get(ctx context.Context, path, variant string) ([]byte, bool, error)
		Set(ctx context.Context, path, variant string, data []byte) error
	}
)
