package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
)

// LogEntry is one event recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records every event in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Entries returns the recorded events of level, or all of them when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	uname, email, pwd string,
	role account.Role,
	verified bool,
) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acc := account.Account{
		Username:  uname,
		Email:     core.NullString(email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if verified {
		acc.VerifiedAt.SetValid(now)
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("createAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acc
}

func CreateGrade(t *testing.T, repo academics.Repository, level int) academics.Grade {
	t.Helper()
	g, err := repo.CreateGrade(context.Background(), academics.Grade{Level: level})
	if err != nil {
		t.Fatalf("createGrade() failed: %v", err)
	}
	return g
}

func CreateClass(t *testing.T, repo academics.Repository, name string, gradeID int, supervisorID string) academics.Class {
	t.Helper()
	c := academics.Class{Name: name, Capacity: 30, GradeID: gradeID}
	if supervisorID != "" {
		c.SupervisorID = null.StringFrom(supervisorID)
	}
	c, err := repo.CreateClass(context.Background(), c)
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return c
}

func CreateSubject(t *testing.T, repo academics.Repository, name string, teacherIDs ...string) academics.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), academics.Subject{Name: name, TeacherIDs: teacherIDs})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return s
}

func CreateLesson(t *testing.T, repo academics.Repository, subjectID, classID int, teacherID string) academics.Lesson {
	t.Helper()
	start := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	l, err := repo.CreateLesson(context.Background(), academics.Lesson{
		Name:      fmt.Sprintf("lesson %d-%d", subjectID, classID),
		Day:       academics.Monday,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		SubjectID: subjectID,
		ClassID:   classID,
		TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("createLesson() failed: %v", err)
	}
	return l
}

// PrepareDB connects to TEST_DATABASE_URL and truncates every table.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T, open func(dsn string) (*sqlx.DB, error), migrate func(db *sqlx.DB) error) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	db, err := open(dsn)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err = migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	q := `TRUNCATE results, attendances, exams, lessons, students, classes, teacher_subjects,
		parents, teachers, subjects, grades, accounts RESTART IDENTITY CASCADE`
	if _, err = db.Exec(q); err != nil {
		t.Fatalf("truncating test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
