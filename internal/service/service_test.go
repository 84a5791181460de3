package service

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"what-to-do/internal/config"
	"what-to-do/internal/model"

	"gorm.io/gorm"
)

// thursday is the fixed "now" of every service test.
var thursday = time.Date(2024, time.April, 4, 9, 30, 0, 0, time.Local)

type fixture struct {
	db       *gorm.DB
	taxonomy *TaxonomyService
	auth     *AuthService
	acts     *ActivityService
	events   *EventService
	ai       *fakeSummarizer
	cache    SummaryCache
	summary  *SummaryService
	alice    int
	bob      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := config.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{db: db}
	f.taxonomy = NewTaxonomyService(db)
	if _, err := f.taxonomy.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.auth = NewAuthService(db)
	f.alice = mustUser(t, f.auth, "alice")
	f.bob = mustUser(t, f.auth, "bob")

	f.acts = NewActivityService(db)
	f.events = NewEventService(db)
	f.events.now = func() time.Time { return thursday }
	f.ai = &fakeSummarizer{reply: "A calm and productive day."}
	f.cache = NewMemoryCache()
	f.summary = NewSummaryService(db, f.events, f.ai, f.cache, "You are a helpful assistant")
	return f
}

func mustUser(t *testing.T, auth *AuthService, name string) int {
	t.Helper()
	u, err := auth.Register(context.Background(), model.User{Username: name}, name+"-pw")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u.ID
}

func (f *fixture) emotion(t *testing.T, name string) int {
	t.Helper()
	var e model.Emotion
	if err := f.db.Where("name = ?", name).First(&e).Error; err != nil {
		t.Fatalf("emotion %s: %v", name, err)
	}
	return e.ID
}

func (f *fixture) activity(t *testing.T, uid int, name string) int {
	t.Helper()
	a, err := f.acts.Create(context.Background(), uid, name, "")
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a.ID
}

func (f *fixture) logEvent(t *testing.T, uid, activityID int, date string) *model.ActivityEvent {
	t.Helper()
	e, err := f.events.Log(context.Background(), uid, EventInput{ActivityID: activityID, Date: date}, nil)
	if err != nil {
		t.Fatalf("log event: %v", err)
	}
	return e
}

func (f *fixture) annotate(t *testing.T, uid, eventID int, emotion string, intensity int, state model.EmotionState) {
	t.Helper()
	_, err := f.events.AddAnnotation(context.Background(), uid, eventID, AnnotationInput{
		EmotionID: f.emotion(t, emotion), Intensity: intensity, State: state,
	})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
}

type fakeSummarizer struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	inputs []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, text)
	return f.reply, f.err
}

func (f *fakeSummarizer) StreamSummarize(ctx context.Context, system, text string, flush func(string)) (string, error) {
	out, err := f.Summarize(ctx, system, text)
	if err != nil {
		return "", err
	}
	for _, w := range []rune(out) {
		flush(string(w))
	}
	return out, nil
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func intp(v int) *int { return &v }

func strp(s string) *string { return &s }
