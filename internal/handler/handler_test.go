package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"what-to-do/internal/config"
	"what-to-do/internal/middleware"
	"what-to-do/internal/model"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

var thursday = time.Date(2024, time.April, 4, 9, 0, 0, 0, time.Local)

type fakeSummarizer struct {
	reply string
	err   error
}

func (f *fakeSummarizer) Summarize(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func (f *fakeSummarizer) StreamSummarize(_ context.Context, _, _ string, flush func(string)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, w := range strings.SplitAfter(f.reply, " ") {
		flush(w)
	}
	return f.reply, nil
}

type testServer struct {
	t      *testing.T
	r      *gin.Engine
	db     *gorm.DB
	ai     *fakeSummarizer
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := config.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := service.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	taxonomy := service.NewTaxonomyService(db)
	if _, err := taxonomy.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	jwt := middleware.NewJWT("test-secret", time.Hour*48)
	ai := &fakeSummarizer{reply: "A good day overall."}
	events := service.NewEventService(db)
	summary := service.NewSummaryService(db, events, ai, service.NewMemoryCache(), "You are a helpful assistant")
	day := NewDayHandler(events, summary)
	day.now = func() time.Time { return thursday }
	sum := NewSummaryHandler(summary, service.NewExporter(t.TempDir()), service.NewAIService(config.LLMConfig{}, nil, config.MOIConfig{}))
	sum.now = day.now

	r := NewRouter(Handlers{
		Auth:     NewAuthHandler(service.NewAuthService(db), jwt),
		Taxonomy: NewTaxonomyHandler(taxonomy),
		Activity: NewActivityHandler(service.NewActivityService(db)),
		Day:      day,
		Summary:  sum,
	}, RouterConfig{JWT: jwt, SummaryPerMinute: 600, SummaryBurst: 100})

	s := &testServer{t: t, r: r, db: db, ai: ai, tokens: map[string]string{}}
	for _, name := range []string{"alice", "bob"} {
		var resp model.LoginResponse
		s.do("", http.MethodPost, "/api/signup", gin.H{"username": name, "password": name + "-secret"}, http.StatusCreated, &resp)
		s.tokens[name] = resp.Token
	}
	return s
}

// do sends body as JSON as user (empty for anonymous), checks the status and
// decodes the response into out when given.
func (s *testServer) do(user, method, path string, body any, want int, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	if w.Code != want {
		s.t.Fatalf("%s %s: code=%d want %d body=%s", method, path, w.Code, want, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w
}

func (s *testServer) emotionID(name string) int {
	var e model.Emotion
	if err := s.db.Where("name = ?", name).First(&e).Error; err != nil {
		s.t.Fatalf("emotion %s: %v", name, err)
	}
	return e.ID
}

func (s *testServer) createActivity(user, name string) int {
	var a model.Activity
	s.do(user, http.MethodPost, "/api/activities", gin.H{"name": name}, http.StatusCreated, &a)
	return a.ID
}

func TestLoginAndAuthRequired(t *testing.T) {
	s := newTestServer(t)
	var resp model.LoginResponse
	s.do("", http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "alice-secret"}, http.StatusOK, &resp)
	if resp.Token == "" || resp.User.Username != "alice" {
		t.Fatalf("login resp=%+v", resp)
	}
	s.do("", http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "nope"}, http.StatusUnauthorized, nil)
	s.do("", http.MethodPost, "/api/signup", gin.H{"username": "alice", "password": "another-pw"}, http.StatusConflict, nil)
	s.do("", http.MethodGet, "/api/activities", nil, http.StatusUnauthorized, nil)
}

func TestEmotionsGrouped(t *testing.T) {
	s := newTestServer(t)
	var resp struct {
		Categories []service.CategoryGroup `json:"categories"`
	}
	s.do("alice", http.MethodGet, "/api/emotions", nil, http.StatusOK, &resp)
	if len(resp.Categories) == 0 || len(resp.Categories[0].Emotions) == 0 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestDayFlow(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")

	var e model.ActivityEvent
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{
		"activity_id": run, "minutes": 30, "comment": "easy pace",
		"emotion": gin.H{"emotion_id": s.emotionID("Happy"), "intensity": 10, "state": "after"},
	}, http.StatusCreated, &e)
	if e.ActivityScore != 5 {
		t.Fatalf("score=%v", e.ActivityScore)
	}

	var a model.EmotionAnnotation
	s.do("alice", http.MethodPost, "/api/events/"+itoa(e.ID)+"/annotations", gin.H{
		"emotion_id": s.emotionID("Anxious"), "intensity": 5, "state": "BEFORE",
	}, http.StatusCreated, &a)

	var score struct {
		Score float64 `json:"activity_score"`
	}
	s.do("alice", http.MethodGet, "/api/events/"+itoa(e.ID)+"/score", nil, http.StatusOK, &score)
	if score.Score != 4 {
		t.Fatalf("score after second annotation=%v", score.Score)
	}

	var day model.DayResponse
	s.do("alice", http.MethodGet, "/api/days", nil, http.StatusOK, &day)
	if day.Date != "2024-04-04" || day.Status != "Today" || day.Prev != "2024-04-03" || day.Next != "2024-04-05" {
		t.Fatalf("day=%+v", day)
	}
	if len(day.Events) != 1 || day.DayScore != 4 || day.HasSummary {
		t.Fatalf("events=%d score=%v summary=%v", len(day.Events), day.DayScore, day.HasSummary)
	}

	s.do("alice", http.MethodDelete, "/api/annotations/"+itoa(a.ID), nil, http.StatusNoContent, nil)
	s.do("alice", http.MethodGet, "/api/events/"+itoa(e.ID)+"/score", nil, http.StatusOK, &score)
	if score.Score != 5 {
		t.Fatalf("score after removal=%v", score.Score)
	}
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	var e model.ActivityEvent
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusCreated, &e)

	path := "/api/events/" + itoa(e.ID) + "/annotations"
	w := s.do("alice", http.MethodPost, path, gin.H{"emotion_id": s.emotionID("Happy"), "intensity": 11, "state": "AFTER"}, http.StatusBadRequest, nil)
	if !strings.Contains(w.Body.String(), "between 1 and 10") {
		t.Fatalf("body=%s", w.Body.String())
	}
	s.do("alice", http.MethodPost, path, gin.H{"emotion_id": s.emotionID("Happy"), "intensity": 5, "state": "SOMETIME"}, http.StatusBadRequest, nil)
	s.do("alice", http.MethodPost, "/api/activities", gin.H{"name": ""}, http.StatusBadRequest, nil)
	s.do("alice", http.MethodGet, "/api/events/abc/score", nil, http.StatusBadRequest, nil)

	w = s.do("alice", http.MethodPut, "/api/events/"+itoa(e.ID), gin.H{"date": "04/05/2024"}, http.StatusBadRequest, nil)
	if !strings.Contains(w.Body.String(), "YYYY-MM-DD") {
		t.Fatalf("body=%s", w.Body.String())
	}
	w = s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run, "time": "banana o'clock"}, http.StatusBadRequest, nil)
	if !strings.Contains(w.Body.String(), "HH:MM") {
		t.Fatalf("body=%s", w.Body.String())
	}
	s.do("alice", http.MethodPut, "/api/events/"+itoa(e.ID), gin.H{"time": "99:99"}, http.StatusBadRequest, nil)
}

func TestOwnershipIsolation(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	var e model.ActivityEvent
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusCreated, &e)

	s.do("bob", http.MethodGet, "/api/activities/"+itoa(run), nil, http.StatusNotFound, nil)
	s.do("bob", http.MethodGet, "/api/events/"+itoa(e.ID)+"/score", nil, http.StatusNotFound, nil)
	s.do("bob", http.MethodPost, "/api/events/"+itoa(e.ID)+"/annotations",
		gin.H{"emotion_id": s.emotionID("Happy"), "intensity": 5, "state": "AFTER"}, http.StatusNotFound, nil)
	s.do("bob", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusNotFound, nil)

	var day model.DayResponse
	s.do("bob", http.MethodGet, "/api/days/2024-04-04", nil, http.StatusOK, &day)
	if len(day.Events) != 0 {
		t.Fatalf("bob sees %d events", len(day.Events))
	}
}

func TestWeekView(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	for _, d := range []string{"2024-04-01", "2024-04-01", "2024-04-06", "2024-04-09"} {
		s.do("alice", http.MethodPost, "/api/days/"+d+"/events", gin.H{"activity_id": run}, http.StatusCreated, nil)
	}

	var week model.WeekResponse
	s.do("alice", http.MethodGet, "/api/weeks/2024-04-03", nil, http.StatusOK, &week)
	if week.Start != "2024-04-01" || week.End != "2024-04-07" || week.Prev != "2024-03-25" || week.Next != "2024-04-08" || !week.IsCurrent {
		t.Fatalf("week=%+v", week)
	}
	if len(week.Days) != 7 {
		t.Fatalf("days=%d", len(week.Days))
	}
	counts := []int{2, 0, 0, 0, 0, 1, 0}
	for i, d := range week.Days {
		if d.Events == nil || len(d.Events) != counts[i] {
			t.Fatalf("day %s: %v", d.Date, d.Events)
		}
	}
	if week.Days[3].Status != "Today" {
		t.Fatalf("thursday status=%q", week.Days[3].Status)
	}
}

func TestRankedActivities(t *testing.T) {
	s := newTestServer(t)
	low := s.createActivity("alice", "Commute")
	high := s.createActivity("alice", "Running")
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{
		"activity_id": high, "emotion": gin.H{"emotion_id": s.emotionID("Happy"), "intensity": 6, "state": "DURING"},
	}, http.StatusCreated, nil)
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{
		"activity_id": low, "emotion": gin.H{"emotion_id": s.emotionID("Stressed"), "intensity": 6, "state": "DURING"},
	}, http.StatusCreated, nil)

	var resp struct {
		Activities []struct {
			Activity model.Activity `json:"activity"`
			Total    float64        `json:"total_score"`
		} `json:"activities"`
	}
	s.do("alice", http.MethodGet, "/api/activities", nil, http.StatusOK, &resp)
	if len(resp.Activities) != 2 || resp.Activities[0].Activity.ID != high || resp.Activities[1].Activity.ID != low {
		t.Fatalf("ranking=%+v", resp.Activities)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")

	s.do("alice", http.MethodPost, "/api/days/2024-04-04/summary", nil, http.StatusBadRequest, nil)

	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusCreated, nil)

	var peek model.SummaryResponse
	s.do("alice", http.MethodGet, "/api/days/2024-04-04/summary", nil, http.StatusOK, &peek)
	if peek.Found {
		t.Fatalf("peek generated a summary")
	}

	var got model.SummaryResponse
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/summary", gin.H{"regenerate": false}, http.StatusOK, &got)
	if got.Summary != s.ai.reply {
		t.Fatalf("summary=%q", got.Summary)
	}

	var day model.DayResponse
	s.do("alice", http.MethodGet, "/api/days/2024-04-04", nil, http.StatusOK, &day)
	if !day.HasSummary || day.Summary != s.ai.reply {
		t.Fatalf("day view summary=%q", day.Summary)
	}

	s.ai.err = errors.New("model overloaded")
	w := s.do("alice", http.MethodPost, "/api/days/2024-04-04/summary", gin.H{"regenerate": true}, http.StatusBadGateway, nil)
	if !strings.Contains(w.Body.String(), "model overloaded") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestSummaryStream(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusCreated, nil)

	w := s.do("alice", http.MethodPost, "/api/days/2024-04-04/summary/stream", nil, http.StatusOK, nil)
	body := w.Body.String()
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content-type=%q", w.Header().Get("Content-Type"))
	}
	for _, part := range []string{"event: token", "event: result", "event: done", s.ai.reply} {
		if !strings.Contains(body, part) {
			t.Fatalf("missing %q in %s", part, body)
		}
	}
}

func TestRangeSummary(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	s.do("alice", http.MethodPost, "/api/days/2024-04-02/events", gin.H{"activity_id": run}, http.StatusCreated, nil)

	s.do("alice", http.MethodPost, "/api/summaries/range", gin.H{"start": "2024-04-01", "end": "2024-04-07"}, http.StatusOK, nil)
	w := s.do("alice", http.MethodPost, "/api/summaries/range", gin.H{"start": "2024-04-07", "end": "2024-04-01"}, http.StatusBadRequest, nil)
	if !strings.Contains(w.Body.String(), "start date must not be after end date") {
		t.Fatalf("body=%s", w.Body.String())
	}
	s.do("alice", http.MethodPost, "/api/summaries/range", gin.H{"start": "April 1", "end": "2024-04-07"}, http.StatusBadRequest, nil)
}

func TestExportAndDownload(t *testing.T) {
	s := newTestServer(t)
	run := s.createActivity("alice", "Running")
	s.do("alice", http.MethodPost, "/api/days/2024-04-04/events", gin.H{"activity_id": run}, http.StatusCreated, nil)

	var f service.ExportFile
	s.do("alice", http.MethodGet, "/api/days/2024-04-04/summary/export?format=md", nil, http.StatusOK, &f)
	s.do("bob", http.MethodGet, f.DownloadURL, nil, http.StatusNotFound, nil)
	w := s.do("alice", http.MethodGet, f.DownloadURL, nil, http.StatusOK, nil)
	if !strings.Contains(w.Body.String(), s.ai.reply) {
		t.Fatalf("download=%q", w.Body.String())
	}
	s.do("alice", http.MethodGet, f.DownloadURL, nil, http.StatusNotFound, nil)
	s.do("alice", http.MethodGet, "/api/days/2024-04-04/summary/export?format=docx", nil, http.StatusBadRequest, nil)
}

func TestAskWithoutMOI(t *testing.T) {
	s := newTestServer(t)
	w := s.do("alice", http.MethodPost, "/api/ask", gin.H{"question": "When was I happiest?"}, http.StatusOK, nil)
	if !strings.Contains(w.Body.String(), "not configured") || !strings.Contains(w.Body.String(), "event: done") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
