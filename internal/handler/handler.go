// Package handler exposes the event, attendance and notification services
// over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusevents/internal/apperr"
	"campusevents/internal/attendance"
	"campusevents/internal/auth"
	"campusevents/internal/events"
	"campusevents/internal/model"
	"campusevents/internal/notify"
)

// Handler serves the authenticated API routes.
type Handler struct {
	events     *events.Manager
	attendance *attendance.Service
	notify     *notify.Dispatcher
	log        *zap.Logger
}

// New creates a handler over the domain services.
func New(ev *events.Manager, att *attendance.Service, n *notify.Dispatcher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{events: ev, attendance: att, notify: n, log: log}
}

// Routes mounts every authenticated route on r. r must already run
// auth.Bearer.
func (h *Handler) Routes(r gin.IRouter) {
	staff := auth.RequireRoles(model.RoleFaculty, model.RoleHOD, model.RoleAdmin)
	student := auth.RequireRoles(model.RoleStudent)

	ev := r.Group("/events")
	ev.POST("", staff, h.createEvent)
	ev.GET("", h.listEvents)
	ev.GET("/student/me/relevant", student, h.relevantEvents)
	ev.GET("/:id", h.getEvent)
	ev.PUT("/:id", staff, h.updateEvent)
	ev.DELETE("/:id", staff, h.deleteEvent)
	ev.POST("/:id/register", student, h.register)
	ev.GET("/:id/qr-payload", student, h.qrPayload)

	att := r.Group("/attendance", staff)
	att.POST("/mark-from-qr", h.markFromQR)
	att.GET("/event/:eventId", h.listAttendance)
	att.PUT("/:id/meta", h.updateMeta)

	r.GET("/notifications/me", student, h.myNotifications)
	r.POST("/notifications/:id/seen", h.markSeen)

	r.GET("/calendar", h.calendar)
	r.GET("/calendar.ics", h.calendarICS)

	r.GET("/students/me", student, h.me)
	r.GET("/students/me/events", student, h.relevantEvents)
}

// eventView adds the derived lifecycle state to an event.
type eventView struct {
	model.Event
	State model.LifecycleState `json:"state"`
}

func (h *Handler) view(e model.Event) eventView {
	return eventView{Event: e, State: e.State(h.events.Now())}
}

func (h *Handler) views(evs []model.Event) []eventView {
	out := make([]eventView, 0, len(evs))
	for _, e := range evs {
		out = append(out, h.view(e))
	}
	return out
}

func principal(c *gin.Context) model.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

// fail writes the status for err's kind. Internal failures are logged and
// reported without detail.
func (h *Handler) fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	switch ae.Kind {
	case apperr.KindValidation:
		body := gin.H{"error": ae.Message}
		if ae.Field != "" {
			body["field"] = ae.Field
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	case apperr.KindInvalidToken:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ae.Message})
	case apperr.KindForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ae.Message})
	case apperr.KindNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": ae.Message})
	case apperr.KindConflict:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ae.Message})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	res, err := h.events.Create(c.Request.Context(), principal(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": h.view(res.Event), "clashes": res.Clashes})
}

func (h *Handler) listEvents(c *gin.Context) {
	f, err := eventFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	f.Type = model.EventType(c.Query("type"))
	evs, err := h.events.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": h.views(evs)})
}

func eventFilter(c *gin.Context) (events.Filter, error) {
	from, err := parseTimeQuery("from", c.Query("from"))
	if err != nil {
		return events.Filter{}, err
	}
	to, err := parseTimeQuery("to", c.Query("to"))
	if err != nil {
		return events.Filter{}, err
	}
	return events.Filter{Department: c.Query("department"), From: from, To: to}, nil
}

func (h *Handler) getEvent(c *gin.Context) {
	ev, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": h.view(ev)})
}

func (h *Handler) updateEvent(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	res, err := h.events.Update(c.Request.Context(), principal(c), c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"event": h.view(res.Event)}
	if res.Clashes != nil {
		body["clashes"] = res.Clashes
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) register(c *gin.Context) {
	ev, err := h.events.Register(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": h.view(ev)})
}

func (h *Handler) relevantEvents(c *gin.Context) {
	evs, err := h.events.RelevantFor(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": h.views(evs)})
}

func (h *Handler) qrPayload(c *gin.Context) {
	ev, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payload": attendance.EncodeToken(ev.ID, principal(c).ID)})
}

func (h *Handler) markFromQR(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	if req.Payload == nil {
		h.fail(c, apperr.Validation("payload", "required"))
		return
	}
	token, _ := req.Payload.(string)
	rec, err := h.attendance.MarkFromToken(c.Request.Context(), token, principal(c).Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rec})
}

func (h *Handler) listAttendance(c *gin.Context) {
	list, err := h.attendance.ListForEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": list})
}

func (h *Handler) updateMeta(c *gin.Context) {
	var req metaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	rec, err := h.attendance.UpdateMetadata(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rec})
}

func (h *Handler) myNotifications(c *gin.Context) {
	p := principal(c)
	list, err := h.notify.ListForStudent(c.Request.Context(), p.ID, p.Department, p.Semester)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) markSeen(c *gin.Context) {
	n, err := h.notify.MarkSeen(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

func (h *Handler) calendar(c *gin.Context) {
	evs, ok := h.calendarEvents(c)
	if !ok {
		return
	}
	grouped := make(map[string][]eventView)
	for _, day := range events.GroupByDay(evs) {
		grouped[day.Date] = h.views(day.Events)
	}
	c.JSON(http.StatusOK, gin.H{"calendar": grouped})
}

func (h *Handler) calendarICS(c *gin.Context) {
	evs, ok := h.calendarEvents(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="campus-events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(events.ExportICS(evs, time.Now())))
}

func (h *Handler) calendarEvents(c *gin.Context) ([]model.Event, bool) {
	f, err := eventFilter(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	evs, err := h.events.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return evs, true
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, principal(c))
}
