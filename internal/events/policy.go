package events

import "campusevents/internal/model"

// restrictedForFaculty are the types only HOD and admin may manage.
var restrictedForFaculty = map[model.EventType]bool{
	model.EventExam:     true,
	model.EventDeadline: true,
}

// CanManage reports whether role may create, update into, or delete an
// event of type t.
func CanManage(role model.Role, t model.EventType) bool {
	switch role {
	case model.RoleHOD, model.RoleAdmin:
		return true
	case model.RoleFaculty:
		return !restrictedForFaculty[t]
	default:
		return false
	}
}
