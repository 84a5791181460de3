package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/digest"
	"what-to-do/internal/logger"
	"what-to-do/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SummaryHook is told about every stored day summary.
type SummaryHook func(ctx context.Context, uid int, date time.Time, summary string)

// SummaryService generates day summaries and keeps at most one per user and
// date, both in the cache and in day_summaries.
type SummaryService struct {
	db     *gorm.DB
	events *EventService
	ai     Summarizer
	cache  SummaryCache
	prompt string
	onSave SummaryHook
}

func NewSummaryService(db *gorm.DB, events *EventService, ai Summarizer, cache SummaryCache, prompt string) *SummaryService {
	return &SummaryService{db: db, events: events, ai: ai, cache: cache, prompt: prompt}
}

func (s *SummaryService) OnSave(h SummaryHook) { s.onSave = h }

// Peek returns an existing summary without ever generating one. The cache is
// consulted first; a stored row re-warms it.
func (s *SummaryService) Peek(ctx context.Context, uid int, date time.Time) (string, bool, error) {
	date = calendar.Date(date)
	if v, ok, err := s.cache.Get(ctx, uid, date); err != nil {
		logger.Ctx(ctx).Warn("summary.cache_get", "uid", uid, "date", calendar.Format(date), "err", err)
	} else if ok {
		return v, true, nil
	}

	var row model.DaySummary
	err := s.db.WithContext(ctx).Where("user_id = ? AND summary_date = ?", uid, date).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query summary: %w", err)
	}
	if err := s.cache.Set(ctx, uid, date, row.Summary); err != nil {
		logger.Ctx(ctx).Warn("summary.cache_set", "uid", uid, "err", err)
	}
	return row.Summary, true, nil
}

// Get returns the day's summary, generating it when none exists or when
// regenerate is set. A fresh result overwrites both cache and store.
func (s *SummaryService) Get(ctx context.Context, uid int, date time.Time, regenerate bool) (string, error) {
	date = calendar.Date(date)
	if !regenerate {
		if v, ok, err := s.Peek(ctx, uid, date); err != nil {
			return "", err
		} else if ok {
			return v, nil
		}
	}

	text, err := s.Digest(ctx, uid, date)
	if err != nil {
		return "", err
	}
	start := time.Now()
	summary, err := s.ai.Summarize(ctx, s.prompt, text)
	if err != nil {
		logger.Ctx(ctx).Error("summary.generate", "uid", uid, "date", calendar.Format(date), "err", err)
		return "", fmt.Errorf("%w: %v", ErrSummarizer, err)
	}
	logger.Ctx(ctx).Info("summary.generate", "uid", uid, "date", calendar.Format(date), "ms", time.Since(start).Milliseconds())
	if err := s.store(ctx, uid, date, summary); err != nil {
		return "", err
	}
	return summary, nil
}

// Stream regenerates the day's summary, passing tokens to flush as they
// arrive, and stores the full text once the stream ends.
func (s *SummaryService) Stream(ctx context.Context, uid int, date time.Time, flush func(string)) (string, error) {
	date = calendar.Date(date)
	text, err := s.Digest(ctx, uid, date)
	if err != nil {
		return "", err
	}
	summary, err := s.ai.StreamSummarize(ctx, s.prompt, text, flush)
	if err != nil {
		logger.Ctx(ctx).Error("summary.stream", "uid", uid, "date", calendar.Format(date), "err", err)
		return "", fmt.Errorf("%w: %v", ErrSummarizer, err)
	}
	if err := s.store(ctx, uid, date, summary); err != nil {
		return "", err
	}
	return summary, nil
}

// SummarizeRange summarises an inclusive range of days in one call. Range
// summaries are not stored.
func (s *SummaryService) SummarizeRange(ctx context.Context, uid int, r calendar.Range) (string, error) {
	if r.Start.After(r.End) {
		return "", calendar.ErrInvertedRange
	}
	events, err := s.events.ListRange(ctx, uid, r.Start, r.End)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", ErrNothingToSummarize
	}
	summary, err := s.ai.Summarize(ctx, s.prompt, digest.BuildDated(events))
	if err != nil {
		logger.Ctx(ctx).Error("summary.range", "uid", uid, "start", calendar.Format(r.Start), "end", calendar.Format(r.End), "err", err)
		return "", fmt.Errorf("%w: %v", ErrSummarizer, err)
	}
	return summary, nil
}

// Digest builds the text handed to the summarizer for one day.
func (s *SummaryService) Digest(ctx context.Context, uid int, date time.Time) (string, error) {
	events, err := s.events.ListDay(ctx, uid, calendar.Date(date))
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", ErrNothingToSummarize
	}
	return digest.Build(events), nil
}

func (s *SummaryService) store(ctx context.Context, uid int, date time.Time, summary string) error {
	if err := s.cache.Set(ctx, uid, date, summary); err != nil {
		logger.Ctx(ctx).Warn("summary.cache_set", "uid", uid, "err", err)
	}
	row := model.DaySummary{UserID: uid, SummaryDate: date, Summary: summary}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	if s.onSave != nil {
		s.onSave(ctx, uid, date, summary)
	}
	return nil
}
