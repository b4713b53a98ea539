package profile

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Kind is the role specific flavour of a Profile.
type Kind string

const (
	KindTeacher Kind = "TEACHER"
	KindStudent Kind = "STUDENT"
	KindParent  Kind = "PARENT"
)

type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

// Profile is the domain record paired 1:1 with an account.Account; ProfileID() == Account.ID.
type Profile interface {
	ProfileID() string
	ProfileKind() Kind
}

// Base holds the attributes shared by every Profile.
type Base struct {
	ID        string      `json:"id" db:"id"`
	Username  string      `json:"username" db:"username"`
	Name      string      `json:"name" db:"name"`
	Surname   string      `json:"surname" db:"surname"`
	Email     null.String `json:"email" db:"email"`
	Phone     null.String `json:"phone" db:"phone"`
	Address   string      `json:"address" db:"address"`
	Img       null.String `json:"img" db:"img"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

func (b Base) ProfileID() string { return b.ID }

type Teacher struct {
	Base
	BloodType  string    `json:"bloodType" db:"blood_type"`
	Sex        Sex       `json:"sex" db:"sex"`
	Birthday   time.Time `json:"birthday" db:"birthday"`
	SubjectIDs []int     `json:"subjects" db:"-"`
}

func (Teacher) ProfileKind() Kind { return KindTeacher }

type Student struct {
	Base
	BloodType string    `json:"bloodType" db:"blood_type"`
	Sex       Sex       `json:"sex" db:"sex"`
	Birthday  time.Time `json:"birthday" db:"birthday"`
	GradeID   int       `json:"gradeId" db:"grade_id"`
	ClassID   int       `json:"classId" db:"class_id"`
	ParentID  string    `json:"parentId" db:"parent_id"`
}

func (Student) ProfileKind() Kind { return KindStudent }

type Parent struct {
	Base
	StudentIDs []string `json:"students" db:"-"`
}

func (Parent) ProfileKind() Kind { return KindParent }

// OrderingFields maps the orderable json fields of a Profile to their columns.
var OrderingFields = map[string]string{
	"username":  "username",
	"name":      "name",
	"surname":   "surname",
	"createdAt": "created_at",
}

// QueryFilter narrows listings. Zero values are ignored.
// Search is a case-insensitive match on name, surname, username or email.
type QueryFilter struct {
	core.QueryFilter
	ClassID   int    `query:"classId"`   // students only
	ParentID  string `query:"parentId"`  // students only
	SubjectID int    `query:"subjectId"` // teachers only
}
