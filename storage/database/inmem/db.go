// Package inmemdb is an in-memory implementation of the core repositories.
// It backs the API tests and the local quickstart; semantics mirror the sqlx
// repos including tenant scoping and uniqueness errors.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/guard"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mutex sync.RWMutex
	seq   int

	schools    map[int]*school.School
	users      map[string]*user.User
	classrooms map[int]*classroom.Classroom
	staff      map[int]*staff.Staff
	students   map[int]*student.Student
	guards     map[int]*guard.Guard
	visitors   map[int]*guard.Visitor
	fees       map[int]*finance.FeeRecord
	salaries   map[int]*finance.SalaryRecord
	attendance map[int]*attendance.Record
}

func NewDB() *DB {
	return &DB{
		schools:    make(map[int]*school.School),
		users:      make(map[string]*user.User),
		classrooms: make(map[int]*classroom.Classroom),
		staff:      make(map[int]*staff.Staff),
		students:   make(map[int]*student.Student),
		guards:     make(map[int]*guard.Guard),
		visitors:   make(map[int]*guard.Visitor),
		fees:       make(map[int]*finance.FeeRecord),
		salaries:   make(map[int]*finance.SalaryRecord),
		attendance: make(map[int]*attendance.Record),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int {
	db.seq++
	return db.seq
}

// matches does the case-insensitive substring search the sqlx repos do with
// ILIKE.
func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// window applies offset/limit pagination to an already-filtered result set.
func window(total int, page core.Pagination) (lo, hi int) {
	lo = page.Offset
	if lo > total {
		lo = total
	}
	hi = lo + page.Limit
	if page.Limit <= 0 || hi > total {
		hi = total
	}
	return lo, hi
}
