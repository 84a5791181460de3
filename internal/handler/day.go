package handler

import (
	"net/http"
	"strings"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/logger"
	"what-to-do/internal/model"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

// DayHandler serves the day and week views and the event and annotation
// routes hanging off them.
type DayHandler struct {
	events  *service.EventService
	summary *service.SummaryService
	now     func() time.Time
}

func NewDayHandler(events *service.EventService, summary *service.SummaryService) *DayHandler {
	return &DayHandler{events: events, summary: summary, now: time.Now}
}

// GET /api/days[/:date]; a missing or malformed date means today.
func (h *DayHandler) Day(c *gin.Context) {
	ctx := c.Request.Context()
	day := calendar.ResolveDay(c.Param("date"), h.now())
	events, err := h.events.ListDay(ctx, uid(c), day.Date)
	if err != nil {
		fail(c, err)
		return
	}

	resp := model.DayResponse{
		Date:    calendar.Format(day.Date),
		Status:  day.Status,
		Weekday: day.Weekday,
		Prev:    calendar.Format(day.Prev),
		Next:    calendar.Format(day.Next),
		Events:  events,
	}
	for _, e := range events {
		resp.DayScore += e.ActivityScore
	}
	if s, ok, err := h.summary.Peek(ctx, uid(c), day.Date); err != nil {
		logger.Warn("day.summary_peek", "uid", uid(c), "err", err)
	} else if ok {
		resp.Summary, resp.HasSummary = s, true
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/weeks[/:date]
func (h *DayHandler) Week(c *gin.Context) {
	now := h.now()
	week := calendar.ResolveWeek(c.Param("date"), now)
	events, err := h.events.ListRange(c.Request.Context(), uid(c), week.Start, week.End)
	if err != nil {
		fail(c, err)
		return
	}

	resp := model.WeekResponse{
		Start:     calendar.Format(week.Start),
		End:       calendar.Format(week.End),
		Prev:      calendar.Format(week.Prev),
		Next:      calendar.Format(week.Next),
		IsCurrent: week.IsCurrent,
	}
	today := calendar.Today(now)
	for _, b := range calendar.GroupEventsByDate(events, week) {
		resp.Days = append(resp.Days, model.WeekDay{
			Date:    calendar.Format(b.Date),
			Weekday: b.Date.Weekday().String(),
			Status:  calendar.DayStatus(b.Date, today),
			Events:  b.Events,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/days/:date/events
func (h *DayHandler) LogEvent(c *gin.Context) {
	var req model.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	in := eventInput(req)
	in.Date = c.Param("date")

	var first *service.AnnotationInput
	if req.Emotion != nil {
		a := annotationInput(*req.Emotion)
		first = &a
	}
	e, err := h.events.Log(c.Request.Context(), uid(c), in, first)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// PUT /api/events/:id
func (h *DayHandler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req model.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	e, err := h.events.Update(c.Request.Context(), uid(c), id, eventInput(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *DayHandler) DeleteEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), uid(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/events/:id/score
func (h *DayHandler) Score(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	score, err := h.events.Score(c.Request.Context(), uid(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": id, "activity_score": score})
}

// POST /api/events/:id/annotations
func (h *DayHandler) Annotate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req model.AnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	a, err := h.events.AddAnnotation(c.Request.Context(), uid(c), id, annotationInput(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// DELETE /api/annotations/:id
func (h *DayHandler) DeleteAnnotation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.events.DeleteAnnotation(c.Request.Context(), uid(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func eventInput(req model.EventRequest) service.EventInput {
	return service.EventInput{
		ActivityID: req.ActivityID,
		Date:       req.Date,
		Time:       req.Time,
		Hours:      req.Hours,
		Minutes:    req.Minutes,
		Comment:    req.Comment,
	}
}

func annotationInput(req model.AnnotationRequest) service.AnnotationInput {
	return service.AnnotationInput{
		EmotionID: req.EmotionID,
		Intensity: req.Intensity,
		Note:      req.Note,
		State:     model.EmotionState(strings.ToUpper(strings.TrimSpace(string(req.State)))),
	}
}
