package profile

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound        = errors.New("profile not found")
	ErrProfileExists   = errors.New("a profile already exists for this account")
	ErrRelatedNotFound = errors.New("a related record does not exist")
	ErrProfileInUse    = errors.New("profile is still referenced by other records")
)

type Repository interface {
	// CreateProfile inserts p under p.ProfileID(), which must be the ID of an existing Account.
	CreateProfile(ctx context.Context, p Profile) error
	// UpdateProfile replaces every domain field of the stored Profile; Teacher subjects use set semantics.
	UpdateProfile(ctx context.Context, p Profile) error
	// DeleteProfile returns ErrProfileInUse when a Parent still has Students.
	DeleteProfile(ctx context.Context, kind Kind, id string) error

	GetTeacher(ctx context.Context, id string) (Teacher, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	GetParent(ctx context.Context, id string) (Parent, error)

	QueryTeachers(ctx context.Context, filter QueryFilter) ([]Teacher, error)
	QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
	QueryParents(ctx context.Context, filter QueryFilter) ([]Parent, error)
}
