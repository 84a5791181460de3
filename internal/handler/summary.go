package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/logger"
	"what-to-do/internal/model"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

type SummaryHandler struct {
	summary  *service.SummaryService
	exporter *service.Exporter
	ai       *service.AIService
	now      func() time.Time
}

func NewSummaryHandler(summary *service.SummaryService, exporter *service.Exporter, ai *service.AIService) *SummaryHandler {
	return &SummaryHandler{summary: summary, exporter: exporter, ai: ai, now: time.Now}
}

func (h *SummaryHandler) day(c *gin.Context) time.Time {
	return calendar.ResolveDay(c.Param("date"), h.now()).Date
}

// GET /api/days/:date/summary never generates.
func (h *SummaryHandler) Peek(c *gin.Context) {
	date := h.day(c)
	s, ok, err := h.summary.Peek(c.Request.Context(), uid(c), date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SummaryResponse{Date: calendar.Format(date), Summary: s, Found: ok})
}

// POST /api/days/:date/summary {"regenerate": bool}
func (h *SummaryHandler) Generate(c *gin.Context) {
	var req model.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date := h.day(c)
	s, err := h.summary.Get(c.Request.Context(), uid(c), date, req.Regenerate)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SummaryResponse{Date: calendar.Format(date), Summary: s, Found: true})
}

// POST /api/days/:date/summary/stream regenerates over SSE: token events,
// then result (or error), then done.
func (h *SummaryHandler) Stream(c *gin.Context) {
	date := h.day(c)
	sse := newSSE(c)
	logger.Info("summary.stream", "uid", uid(c), "date", calendar.Format(date))

	s, err := h.summary.Stream(c.Request.Context(), uid(c), date, sse.token)
	if err != nil {
		sse.event("error", map[string]string{"error": err.Error()})
		sse.done()
		return
	}
	sse.event("result", model.SummaryResponse{Date: calendar.Format(date), Summary: s, Found: true})
	sse.done()
}

// GET /api/days/:date/summary/export?format=md|png generates the summary if
// needed and returns a download link.
func (h *SummaryHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	date := h.day(c)
	s, err := h.summary.Get(ctx, uid(c), date, false)
	if err != nil {
		fail(c, err)
		return
	}
	f, err := h.exporter.Export(uid(c), c.DefaultQuery("format", "md"), s, date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// POST /api/summaries/range {"start","end"}
func (h *SummaryHandler) Range(c *gin.Context) {
	var req model.RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}
	r, err := calendar.ParseRange(req.Start, req.End)
	if err != nil {
		if !errors.Is(err, calendar.ErrInvertedRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
		fail(c, err)
		return
	}
	s, err := h.summary.SummarizeRange(c.Request.Context(), uid(c), r)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": calendar.Format(r.Start), "end": calendar.Format(r.End), "summary": s})
}

// GET /api/files/:name serves one of the caller's exports once, then
// removes it.
func (h *SummaryHandler) Download(c *gin.Context) {
	path, err := h.exporter.Path(uid(c), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, c.Param("name"))
	os.Remove(path)
}

// POST /api/ask answers questions about the diary through MOI data asking.
func (h *SummaryHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	sse := newSSE(c)

	var answered bool
	err := h.ai.StreamAsk(c.Request.Context(), uid(c), strings.TrimSpace(req.Question), func(t string) {
		answered = true
		sse.token(t)
	}, func(t string) {
		sse.event("thinking", map[string]string{"text": t})
	})
	if err != nil {
		logger.Error("ask.failed", "uid", uid(c), "err", err)
		if !answered {
			sse.token("The diary search is unavailable right now, please try again later.")
		}
	} else if !answered {
		sse.token("Nothing in the diary matches that question.")
	}
	sse.done()
}

type sseWriter struct {
	w http.Flusher
	f gin.ResponseWriter
}

func newSSE(c *gin.Context) *sseWriter {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	return &sseWriter{w: c.Writer, f: c.Writer}
}

func (s *sseWriter) event(name string, data interface{}) {
	j, _ := json.Marshal(data)
	fmt.Fprintf(s.f, "event: %s\ndata: %s\n\n", name, j)
	s.w.Flush()
}

func (s *sseWriter) token(t string) {
	s.event("token", map[string]string{"token": t})
}

func (s *sseWriter) done() {
	s.event("done", map[string]string{})
}
