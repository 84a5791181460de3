package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/logger"
	"what-to-do/internal/model"
	"what-to-do/internal/scoring"

	"gorm.io/gorm"
)

// EventInput describes a logged occurrence. Hours and Minutes together form
// the duration; leaving both nil records no duration.
type EventInput struct {
	ActivityID int
	Date       string
	Time       *string
	Hours      *int
	Minutes    *int
	Comment    string
}

type AnnotationInput struct {
	EmotionID int
	Intensity int
	Note      string
	State     model.EmotionState
}

func (in AnnotationInput) validate() error {
	if in.Intensity < 1 || in.Intensity > 10 {
		return ErrInvalidIntensity
	}
	if !in.State.Valid() {
		return ErrInvalidState
	}
	return nil
}

func (in EventInput) duration() (*int, error) {
	if in.Hours == nil && in.Minutes == nil {
		return nil, nil
	}
	total := 0
	if in.Hours != nil {
		total += *in.Hours * 60
	}
	if in.Minutes != nil {
		total += *in.Minutes
	}
	if total < 0 || (in.Hours != nil && *in.Hours < 0) || (in.Minutes != nil && *in.Minutes < 0) {
		return nil, ErrInvalidDuration
	}
	return &total, nil
}

// EventHook is told about every event written or removed; the catalog sync
// uses it. Saved events arrive with annotations and a fresh score.
type EventHook func(ctx context.Context, e model.ActivityEvent)

type EventService struct {
	db       *gorm.DB
	now      func() time.Time
	onSave   EventHook
	onDelete EventHook
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// OnSave fires after a log, an edit, or an annotation change.
func (s *EventService) OnSave(h EventHook) { s.onSave = h }

// OnDelete fires after an event is deleted, with the event as it was.
func (s *EventService) OnDelete(h EventHook) { s.onDelete = h }

// Log records an event, optionally with its first annotation. The date
// defaults to today and a malformed date is treated the same way.
func (s *EventService) Log(ctx context.Context, uid int, in EventInput, first *AnnotationInput) (*model.ActivityEvent, error) {
	dur, err := in.duration()
	if err != nil {
		return nil, err
	}
	at, err := parseEventTime(in.Time)
	if err != nil {
		return nil, err
	}
	if first != nil {
		if err := first.validate(); err != nil {
			return nil, err
		}
	}
	if err := s.checkActivity(ctx, uid, in.ActivityID); err != nil {
		return nil, err
	}

	e := model.ActivityEvent{
		ActivityID:      in.ActivityID,
		UserID:          uid,
		EventDate:       calendar.ResolveDay(in.Date, s.now()).Date,
		EventTime:       at,
		DurationMinutes: dur,
		Comment:         in.Comment,
		ScoreDirty:      first != nil,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		if first == nil {
			return nil
		}
		return s.insertAnnotation(tx, uid, e.ID, *first, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	logger.Ctx(ctx).Info("event.log", "uid", uid, "event_id", e.ID, "date", calendar.Format(e.EventDate))

	saved, err := s.Get(ctx, uid, e.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, *saved)
	return saved, nil
}

// Update rewrites the event's details. Unlike Log, a date that does not
// parse is rejected rather than read as today.
func (s *EventService) Update(ctx context.Context, uid, id int, in EventInput) (*model.ActivityEvent, error) {
	dur, err := in.duration()
	if err != nil {
		return nil, err
	}
	at, err := parseEventTime(in.Time)
	if err != nil {
		return nil, err
	}
	e, err := s.owned(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"event_time":       at,
		"duration_minutes": dur,
		"comment":          in.Comment,
	}
	if in.ActivityID != 0 && in.ActivityID != e.ActivityID {
		if err := s.checkActivity(ctx, uid, in.ActivityID); err != nil {
			return nil, err
		}
		updates["activity_id"] = in.ActivityID
	}
	if strings.TrimSpace(in.Date) != "" {
		d, err := calendar.Parse(in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, in.Date)
		}
		updates["event_date"] = d
	}
	if err := s.db.WithContext(ctx).Model(e).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	saved, err := s.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, *saved)
	return saved, nil
}

func (s *EventService) Delete(ctx context.Context, uid, id int) error {
	e, err := s.Get(ctx, uid, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&model.EmotionAnnotation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ActivityEvent{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	logger.Ctx(ctx).Info("event.delete", "uid", uid, "event_id", id)
	if s.onDelete != nil {
		s.onDelete(ctx, *e)
	}
	return nil
}

// Get loads one owned event with its activity and annotations, refreshing a
// stale score first.
func (s *EventService) Get(ctx context.Context, uid, id int) (*model.ActivityEvent, error) {
	var e model.ActivityEvent
	if err := withAnnotations(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, uid).
		First(&e).Error; err != nil {
		return nil, notFound(err, "event")
	}
	if err := s.refresh(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListDay returns the user's events on one date ordered by time of day.
func (s *EventService) ListDay(ctx context.Context, uid int, date time.Time) ([]model.ActivityEvent, error) {
	return s.ListRange(ctx, uid, date, date)
}

// ListRange returns the user's events within the inclusive date range,
// ordered by date then time of day.
func (s *EventService) ListRange(ctx context.Context, uid int, start, end time.Time) ([]model.ActivityEvent, error) {
	var events []model.ActivityEvent
	if err := withAnnotations(s.db.WithContext(ctx)).
		Where("user_id = ? AND event_date >= ? AND event_date <= ?", uid, calendar.Date(start), calendar.Date(end)).
		Order("event_date, event_time, id").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	for i := range events {
		if err := s.refresh(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *EventService) AddAnnotation(ctx context.Context, uid, eventID int, in AnnotationInput) (*model.EmotionAnnotation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, uid, eventID); err != nil {
		return nil, err
	}
	var a model.EmotionAnnotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insertAnnotation(tx, uid, eventID, in, &a); err != nil {
			return err
		}
		return markDirty(tx, eventID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Emotion.Type").First(&a, a.ID).Error; err != nil {
		return nil, notFound(err, "annotation")
	}
	logger.Ctx(ctx).Info("annotation.add", "uid", uid, "event_id", eventID, "annotation_id", a.ID)
	if err := s.resync(ctx, uid, eventID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *EventService) DeleteAnnotation(ctx context.Context, uid, id int) error {
	var a model.EmotionAnnotation
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).First(&a).Error; err != nil {
		return notFound(err, "annotation")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.EmotionAnnotation{}, id).Error; err != nil {
			return err
		}
		return markDirty(tx, a.EventID)
	})
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	logger.Ctx(ctx).Info("annotation.delete", "uid", uid, "annotation_id", id)
	return s.resync(ctx, uid, a.EventID)
}

// Score returns the event's score, recomputing and persisting it only when
// annotations changed since the last computation.
func (s *EventService) Score(ctx context.Context, uid, id int) (float64, error) {
	e, err := s.Get(ctx, uid, id)
	if err != nil {
		return 0, err
	}
	return e.ActivityScore, nil
}

// RecomputeAll recomputes and persists every score of the user regardless of
// the dirty flag. Returns the number of events touched.
func (s *EventService) RecomputeAll(ctx context.Context, uid int) (int, error) {
	var events []model.ActivityEvent
	if err := withAnnotations(s.db.WithContext(ctx)).Where("user_id = ?", uid).Find(&events).Error; err != nil {
		return 0, fmt.Errorf("query events: %w", err)
	}
	for i := range events {
		events[i].ScoreDirty = true
		if err := s.refresh(ctx, &events[i]); err != nil {
			return i, err
		}
	}
	return len(events), nil
}

func (s *EventService) refresh(ctx context.Context, e *model.ActivityEvent) error {
	if !e.ScoreDirty {
		return nil
	}
	score := scoring.EventScore(*e)
	if err := s.db.WithContext(ctx).Model(&model.ActivityEvent{}).Where("id = ?", e.ID).Updates(map[string]interface{}{
		"activity_score": score,
		"score_dirty":    false,
	}).Error; err != nil {
		return fmt.Errorf("store score: %w", err)
	}
	e.ActivityScore, e.ScoreDirty = score, false
	logger.Debug("event.score", "event_id", e.ID, "score", score)
	return nil
}

func (s *EventService) insertAnnotation(tx *gorm.DB, uid, eventID int, in AnnotationInput, out *model.EmotionAnnotation) error {
	var n int64
	if err := tx.Model(&model.Emotion{}).Where("id = ?", in.EmotionID).Count(&n).Error; err != nil {
		return fmt.Errorf("query emotion: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("emotion %d: %w", in.EmotionID, ErrNotFound)
	}
	a := model.EmotionAnnotation{
		UserID:    uid,
		EventID:   eventID,
		EmotionID: in.EmotionID,
		Intensity: in.Intensity,
		Note:      in.Note,
		State:     in.State,
	}
	if err := tx.Create(&a).Error; err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	if out != nil {
		*out = a
	}
	return nil
}

func (s *EventService) owned(ctx context.Context, uid, id int) (*model.ActivityEvent, error) {
	var e model.ActivityEvent
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).First(&e).Error; err != nil {
		return nil, notFound(err, "event")
	}
	return &e, nil
}

func (s *EventService) checkActivity(ctx context.Context, uid, activityID int) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Activity{}).
		Where("id = ? AND user_id = ?", activityID, uid).Count(&n).Error; err != nil {
		return fmt.Errorf("query activity: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("activity %d: %w", activityID, ErrNotFound)
	}
	return nil
}

// resync reloads an event whose annotations changed, which recomputes its
// score, and passes it to the save hook.
func (s *EventService) resync(ctx context.Context, uid, eventID int) error {
	if s.onSave == nil {
		return nil
	}
	e, err := s.Get(ctx, uid, eventID)
	if err != nil {
		return err
	}
	s.notify(ctx, *e)
	return nil
}

func (s *EventService) notify(ctx context.Context, e model.ActivityEvent) {
	if s.onSave != nil {
		s.onSave(ctx, e)
	}
}

func markDirty(tx *gorm.DB, eventID int) error {
	return tx.Model(&model.ActivityEvent{}).Where("id = ?", eventID).Update("score_dirty", true).Error
}

// parseEventTime accepts HH:MM or HH:MM:SS and returns it zero-padded. A nil
// or blank value means no time of day.
func parseEventTime(t *string) (*string, error) {
	if t == nil || strings.TrimSpace(*t) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*t)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if tm, err := time.Parse(layout, v); err == nil {
			out := tm.Format(layout)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidTime, v)
}
