package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"campusevents/internal/apperr"
	"campusevents/internal/attendance"
	"campusevents/internal/events"
	"campusevents/internal/model"
)

func init() {
	// Report JSON field names rather than Go struct field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// PatchField distinguishes an absent JSON field from an explicit null.
type PatchField[T any] struct {
	Present bool
	Value   *T
}

func (p *PatchField[T]) UnmarshalJSON(b []byte) error {
	p.Present = true
	if string(b) == "null" {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

func (p PatchField[T]) Get() (*T, bool) { return p.Value, p.Present }

var (
	isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

	errTimestamp = errors.New("timestamps must be ISO-8601")
)

// parseISO accepts RFC 3339 and the zone-less second, minute and date
// forms. Zone-less values are read as UTC.
func parseISO(raw string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// isoTime is a request timestamp in any layout parseISO accepts.
type isoTime struct {
	time.Time
}

func (t *isoTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return errTimestamp
	}
	v, ok := parseISO(raw)
	if !ok {
		return errTimestamp
	}
	t.Time = v
	return nil
}

func (t *isoTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type createEventRequest struct {
	Title             string          `json:"title" binding:"required"`
	Description       string          `json:"description"`
	Department        string          `json:"department" binding:"required"`
	Type              model.EventType `json:"type" binding:"required,oneof=seminar workshop circular internal deadline exam"`
	StartTime         *isoTime        `json:"startTime" binding:"required"`
	EndTime           *isoTime        `json:"endTime" binding:"required"`
	Location          string          `json:"location"`
	TargetDepartments []string        `json:"targetDepartments"`
	TargetSemesters   []int           `json:"targetSemesters" binding:"omitempty,dive,min=1,max=12"`
	IsAcademic        *bool           `json:"isAcademic"`
}

func (r createEventRequest) input() events.CreateInput {
	return events.CreateInput{
		Title:             r.Title,
		Description:       r.Description,
		Department:        r.Department,
		Type:              r.Type,
		StartTime:         r.StartTime.Time,
		EndTime:           r.EndTime.Time,
		Location:          r.Location,
		TargetDepartments: r.TargetDepartments,
		TargetSemesters:   r.TargetSemesters,
		IsAcademic:        r.IsAcademic,
	}
}

type updateEventRequest struct {
	Title             *string          `json:"title" binding:"omitempty,min=1"`
	Description       *string          `json:"description"`
	Department        *string          `json:"department" binding:"omitempty,min=1"`
	Type              *model.EventType `json:"type" binding:"omitempty,oneof=seminar workshop circular internal deadline exam"`
	StartTime         *isoTime         `json:"startTime"`
	EndTime           *isoTime         `json:"endTime"`
	Location          *string          `json:"location"`
	TargetDepartments *[]string        `json:"targetDepartments"`
	TargetSemesters   *[]int           `json:"targetSemesters"`
	IsAcademic        *bool            `json:"isAcademic"`
}

func (r updateEventRequest) input() events.UpdateInput {
	return events.UpdateInput{
		Title:             r.Title,
		Description:       r.Description,
		Department:        r.Department,
		Type:              r.Type,
		StartTime:         r.StartTime.ptr(),
		EndTime:           r.EndTime.ptr(),
		Location:          r.Location,
		TargetDepartments: r.TargetDepartments,
		TargetSemesters:   r.TargetSemesters,
		IsAcademic:        r.IsAcademic,
	}
}

// markRequest keeps payload untyped: only an absent or null payload is a
// malformed request, any other non-token value is an invalid token.
type markRequest struct {
	Payload any `json:"payload"`
}

type metaRequest struct {
	Hours               PatchField[float64]                  `json:"hours"`
	Category            PatchField[model.AttendanceCategory] `json:"category"`
	InternalMarksWeight PatchField[float64]                  `json:"internalMarksWeight"`
}

// patch maps absent and null fields to "unchanged"; an empty category
// string is treated the same way.
func (r metaRequest) patch() attendance.MetaPatch {
	var p attendance.MetaPatch
	if v, ok := r.Hours.Get(); ok {
		p.Hours = v
	}
	if v, ok := r.Category.Get(); ok && v != nil && *v != "" {
		p.Category = v
	}
	if v, ok := r.InternalMarksWeight.Get(); ok {
		p.InternalMarksWeight = v
	}
	return p
}

// bindError converts a binding failure into a Validation error naming the
// offending JSON field.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return apperr.Validation(fieldName(fe), describe(fe))
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return apperr.Validation(te.Field, "must be a "+te.Type.String())
	}
	if errors.Is(err, errTimestamp) {
		return apperr.Validation("", errTimestamp.Error())
	}
	return apperr.Validation("", "malformed JSON body")
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func parseTimeQuery(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, ok := parseISO(raw)
	if !ok {
		return nil, apperr.Validation(field, "must be an ISO-8601 timestamp")
	}
	return &t, nil
}
