// Package audience decides which students an event concerns.
package audience

import (
	"slices"

	"campusevents/internal/model"
)

// Student is the part of a student the relevance rule looks at.
type Student struct {
	ID         string
	Department string
	Semester   int
}

// FromPrincipal adapts an authenticated caller.
func FromPrincipal(p model.Principal) Student {
	return Student{ID: p.ID, Department: p.Department, Semester: p.Semester}
}

// IsEventRelevantToStudent is true when the student is registered, or the
// student's department is targeted and the event targets all semesters or
// the student's semester.
func IsEventRelevantToStudent(e model.Event, s Student) bool {
	if e.IsRegistered(s.ID) {
		return true
	}
	if !slices.Contains(e.TargetDepartments, s.Department) {
		return false
	}
	return len(e.TargetSemesters) == 0 || slices.Contains(e.TargetSemesters, s.Semester)
}

// Scope is the cohort a broadcast notification addresses. A nil Semester
// means every semester of the department.
type Scope struct {
	Department string
	Semester   *int
}

// ResolveNotificationScope scopes to the single targeted semester when there
// is exactly one; otherwise the broadcast covers the whole department.
// Multi-semester events therefore reach every semester of the department.
func ResolveNotificationScope(e model.Event) Scope {
	sc := Scope{Department: e.Department}
	if len(e.TargetSemesters) == 1 {
		sem := e.TargetSemesters[0]
		sc.Semester = &sem
	}
	return sc
}

// Filter keeps the events relevant to s, preserving order.
func Filter(events []model.Event, s Student) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if IsEventRelevantToStudent(e, s) {
			out = append(out, e)
		}
	}
	return out
}
