package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
	"dashboard/internal/dashboard"
	"dashboard/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc *dashboard.Service
	db  Pinger
	log *slog.Logger
}

func New(svc *dashboard.Service, db Pinger, log *slog.Logger) *Handler {
	return &Handler{svc: svc, db: db, log: log}
}

// Routes mounts the health check and the dashboard API on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/students", h.RegisterStudent)
		api.GET("/students", h.ListStudents)
		api.GET("/students/search", h.SearchStudent)
		api.GET("/students/:registration", h.GetStudent)
		api.GET("/students/:registration/calendar", h.GetCalendar)
		api.GET("/students/:registration/calendar/export", h.ExportCalendar)
		api.POST("/students/:registration/attendance/:date/toggle", h.ToggleAttendance)
		api.PUT("/students/:registration/attendance", h.SaveAttendance)
		api.PUT("/students/:registration/grade", h.LaunchGrade)
		api.GET("/classes", h.ListClasses)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.log.Error("store ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "db": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": true})
}

// ---------- Students ----------

func (h *Handler) RegisterStudent(c *gin.Context) {
	var req dashboard.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": st.View()})
}

func (h *Handler) ListStudents(c *gin.Context) {
	all, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]model.StudentView, 0, len(all))
	for i := range all {
		views = append(views, all[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"students": views})
}

func (h *Handler) SearchStudent(c *gin.Context) {
	var q dashboard.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st.View()})
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.svc.Find(c.Request.Context(), c.Param("registration"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st.View()})
}

// ---------- Calendar ----------

func (h *Handler) GetCalendar(c *gin.Context) {
	m, ok := monthQuery(c)
	if !ok {
		return
	}
	sc, err := h.svc.Calendar(c.Request.Context(), c.Param("registration"), m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": sc.Student.View(), "calendar": sc.Grid})
}

func (h *Handler) ExportCalendar(c *gin.Context) {
	m, ok := monthQuery(c)
	if !ok {
		return
	}
	if m.IsZero() {
		m = calendar.MonthOf(h.svc.Today())
	}
	reg := c.Param("registration")

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), reg, m, &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s-%s.xlsx"`, reg, m))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func monthQuery(c *gin.Context) (calendar.Month, bool) {
	raw := c.Query("month")
	if raw == "" {
		return calendar.Month{}, true
	}
	m, err := calendar.ParseMonth(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return calendar.Month{}, false
	}
	return m, true
}

// ---------- Attendance ----------

func (h *Handler) ToggleAttendance(c *gin.Context) {
	d, err := calendar.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	res, err := h.svc.Toggle(c.Request.Context(), c.Param("registration"), d)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type saveAttendanceRequest struct {
	Entries []attendance.Entry `json:"entries" binding:"required"`
}

func (h *Handler) SaveAttendance(c *gin.Context) {
	var req saveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SaveAttendance(c.Request.Context(), c.Param("registration"), req.Entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- Grades & classes ----------

type gradeRequest struct {
	Grade *float64 `json:"grade" binding:"required"`
}

func (h *Handler) LaunchGrade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.LaunchGrade(c.Request.Context(), c.Param("registration"), *req.Grade)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":  res.Student.View(),
		"grade":    res.Grade,
		"standing": res.Standing,
	})
}

func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.svc.ClassOverview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

// fail maps service errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		dup  *dashboard.DuplicateRegistrationError
		verr *dashboard.ValidationError
	)
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "existing": dup.Existing.View()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": verr.Fields})
	case errors.Is(err, dashboard.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, dashboard.ErrNotWorkingDay):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
