package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
)

type (
	// DB is an in-process store honouring the same constraints as the postgres schema.
	DB struct {
		mu   sync.RWMutex
		data *tables
	}

	tables struct {
		accounts map[string]account.Account
		teachers map[string]profile.Teacher // SubjectIDs hold the teacher_subjects relation
		students map[string]profile.Student
		parents  map[string]profile.Parent
		grades   map[int]academics.Grade
		subjects map[int]academics.Subject
		classes  map[int]academics.Class
		lessons  map[int]academics.Lesson
		exams    map[int]academics.Exam
		seq      int
	}
)

func Open() *DB {
	return &DB{data: newTables()}
}

func newTables() *tables {
	return &tables{
		accounts: make(map[string]account.Account),
		teachers: make(map[string]profile.Teacher),
		students: make(map[string]profile.Student),
		parents:  make(map[string]profile.Parent),
		grades:   make(map[int]academics.Grade),
		subjects: make(map[int]academics.Subject),
		classes:  make(map[int]academics.Class),
		lessons:  make(map[int]academics.Lesson),
		exams:    make(map[int]academics.Exam),
	}
}

// clone deep copies every table.
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.accounts {
		v.PasswordHash = append([]byte(nil), v.PasswordHash...)
		c.accounts[k] = v
	}
	for k, v := range t.teachers {
		v.SubjectIDs = append([]int(nil), v.SubjectIDs...)
		c.teachers[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.parents {
		c.parents[k] = v
	}
	for k, v := range t.grades {
		c.grades[k] = v
	}
	for k, v := range t.subjects {
		c.subjects[k] = v
	}
	for k, v := range t.classes {
		c.classes[k] = v
	}
	for k, v := range t.lessons {
		c.lessons[k] = v
	}
	for k, v := range t.exams {
		c.exams[k] = v
	}
	c.seq = t.seq
	return c
}

func (t *tables) nextID() int {
	t.seq++
	return t.seq
}

// Reset drops all data.
func (db *DB) Reset() {
	db.mu.Lock()
	db.data = newTables()
	db.mu.Unlock()
}

// conn gives repositories access to the tables, either on their own or within a transaction.
type conn struct {
	db   *DB
	inTx bool
}

func (c conn) read() (t *tables, unlock func()) {
	if c.inTx {
		return c.db.data, func() {}
	}
	c.db.mu.RLock()
	return c.db.data, c.db.mu.RUnlock
}

func (c conn) write() (t *tables, unlock func()) {
	if c.inTx {
		return c.db.data, func() {}
	}
	c.db.mu.Lock()
	return c.db.data, c.db.mu.Unlock
}

// apply runs fn on a copy of the tables, which replaces the current ones only if fn succeeds.
func (c conn) apply(fn func(t *tables) error) error {
	t, unlock := c.write()
	defer unlock()
	if c.inTx {
		return fn(t)
	}
	work := t.clone()
	if err := fn(work); err != nil {
		return err
	}
	c.db.data = work
	return nil
}

var _ provision.Transactor = (*DB)(nil)

// WithinTx serialises fn against every other access and restores the previous state if fn fails.
func (db *DB) WithinTx(ctx context.Context, fn func(repos provision.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.data.clone()
	c := conn{db: db, inTx: true}
	err := fn(provision.Repositories{
		Accounts: &accountRepository{conn: c},
		Profiles: &profileRepository{conn: c},
	})
	if err != nil {
		db.data = snapshot
	}
	return err
}
