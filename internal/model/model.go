package model

import (
	"slices"
	"time"
)

// Role is the role carried by an authenticated principal.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleHOD     Role = "hod"
	RoleAdmin   Role = "admin"
)

// IsStaff reports whether the role may manage events and attendance.
func (r Role) IsStaff() bool {
	return r == RoleFaculty || r == RoleHOD || r == RoleAdmin
}

// EventType is the closed set of event kinds.
type EventType string

const (
	EventSeminar  EventType = "seminar"
	EventWorkshop EventType = "workshop"
	EventCircular EventType = "circular"
	EventInternal EventType = "internal"
	EventDeadline EventType = "deadline"
	EventExam     EventType = "exam"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{EventSeminar, EventWorkshop, EventCircular, EventInternal, EventDeadline, EventExam}

// Valid reports whether t is one of EventTypes.
func (t EventType) Valid() bool {
	return slices.Contains(EventTypes, t)
}

// LifecycleState is the derived view of a persisted event relative to now.
type LifecycleState string

const (
	StateScheduled LifecycleState = "scheduled"
	StateElapsed   LifecycleState = "elapsed"
)

// Event is a scheduled campus activity.
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Department         string    `json:"department"`
	Type               EventType `json:"type"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	Location           string    `json:"location,omitempty"`
	CreatedBy          string    `json:"createdBy"`
	IsAcademic         bool      `json:"isAcademic"`
	TargetDepartments  []string  `json:"targetDepartments"`
	TargetSemesters    []int     `json:"targetSemesters"`
	RegisteredStudents []string  `json:"registeredStudents"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// State derives the lifecycle state; it is never persisted.
func (e Event) State(now time.Time) LifecycleState {
	if now.After(e.EndTime) {
		return StateElapsed
	}
	return StateScheduled
}

// IsRegistered reports whether studentID is in the registration set.
func (e Event) IsRegistered(studentID string) bool {
	return slices.Contains(e.RegisteredStudents, studentID)
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	e.TargetDepartments = slices.Clone(e.TargetDepartments)
	e.TargetSemesters = slices.Clone(e.TargetSemesters)
	e.RegisteredStudents = slices.Clone(e.RegisteredStudents)
	return e
}

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

type AttendanceSource string

const (
	SourceQR     AttendanceSource = "qr"
	SourceManual AttendanceSource = "manual"
)

// AttendanceCategory classifies credited hours.
type AttendanceCategory string

const (
	CategoryAcademic AttendanceCategory = "academic"
	CategoryNSS      AttendanceCategory = "nss"
	CategoryClub     AttendanceCategory = "club"
	CategoryOther    AttendanceCategory = "other"
)

// Valid reports whether c is a known category.
func (c AttendanceCategory) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryNSS, CategoryClub, CategoryOther:
		return true
	}
	return false
}

// Attendance is the ledger entry for one (event, student) pair.
type Attendance struct {
	ID                  string             `json:"id"`
	EventID             string             `json:"event"`
	StudentID           string             `json:"student"`
	Status              AttendanceStatus   `json:"status"`
	Source              AttendanceSource   `json:"source"`
	ScannedAt           time.Time          `json:"scannedAt"`
	Hours               float64            `json:"hours"`
	Category            AttendanceCategory `json:"category"`
	InternalMarksWeight float64            `json:"internalMarksWeight"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// StudentSummary is the subset of a user attached to attendance listings.
type StudentSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Semester   int    `json:"semester,omitempty"`
	RollNumber string `json:"rollNumber,omitempty"`
}

// AttendanceEntry is an attendance record with its student summary.
type AttendanceEntry struct {
	Attendance
	Student *StudentSummary `json:"studentInfo,omitempty"`
}

type NotificationType string

const (
	NotifyReminder     NotificationType = "reminder"
	NotifyExam         NotificationType = "exam"
	NotifyRegistration NotificationType = "registration"
	NotifyGeneral      NotificationType = "general"
)

// Notification is either direct (StudentID set) or a broadcast scoped by
// department and optionally semester.
type Notification struct {
	ID         string           `json:"id"`
	StudentID  *string          `json:"student,omitempty"`
	Department *string          `json:"department,omitempty"`
	Semester   *int             `json:"semester,omitempty"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	EventID    *string          `json:"event,omitempty"`
	Type       NotificationType `json:"type"`
	Seen       bool             `json:"seen"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// IsBroadcast reports whether the notification has no student recipient.
func (n Notification) IsBroadcast() bool {
	return n.StudentID == nil
}

// User is owned by the identity service; the core only reads it.
type User struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Role       Role   `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	Semester   int    `json:"semester,omitempty" yaml:"semester"`
	RollNumber string `json:"rollNumber,omitempty" yaml:"roll_number"`
}

// Summary returns the student summary view of u.
func (u User) Summary() StudentSummary {
	return StudentSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		Semester:   u.Semester,
		RollNumber: u.RollNumber,
	}
}

// Principal is the already-authenticated caller.
type Principal struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Semester   int    `json:"semester,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
