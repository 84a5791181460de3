package service

import (
	"context"
	"fmt"
	"strings"

	"what-to-do/internal/logger"
	"what-to-do/internal/model"
	"what-to-do/internal/scoring"

	"gorm.io/gorm"
)

type ActivityService struct{ db *gorm.DB }

func NewActivityService(db *gorm.DB) *ActivityService { return &ActivityService{db: db} }

func (s *ActivityService) Create(ctx context.Context, uid int, name, description string) (*model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	a := model.Activity{UserID: uid, Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	logger.Info("activity.create", "uid", uid, "activity_id", a.ID)
	return &a, nil
}

// Get returns one owned activity together with its total score.
func (s *ActivityService) Get(ctx context.Context, uid, id int) (*scoring.ActivityScore, error) {
	a, err := s.owned(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	var events []model.ActivityEvent
	if err := withAnnotations(s.db.WithContext(ctx)).
		Where("user_id = ? AND activity_id = ?", uid, id).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return &scoring.ActivityScore{Activity: *a, Total: scoring.ActivityTotal(events)}, nil
}

func (s *ActivityService) Update(ctx context.Context, uid, id int, name, description string) (*model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	a, err := s.owned(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(a).Updates(map[string]interface{}{
		"name":        name,
		"description": description,
	}).Error; err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	a.Name, a.Description = name, description
	return a, nil
}

// Delete removes the activity with its events and their annotations.
func (s *ActivityService) Delete(ctx context.Context, uid, id int) error {
	if _, err := s.owned(ctx, uid, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := tx.Model(&model.ActivityEvent{}).Select("id").Where("activity_id = ?", id)
		if err := tx.Where("event_id IN (?)", events).Delete(&model.EmotionAnnotation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id = ?", id).Delete(&model.ActivityEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Activity{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	logger.Info("activity.delete", "uid", uid, "activity_id", id)
	return nil
}

// Ranked lists every activity of the user with its total score, best first.
// Activities never logged appear with a total of 0.
func (s *ActivityService) Ranked(ctx context.Context, uid int) ([]scoring.ActivityScore, error) {
	var activities []model.Activity
	if err := s.db.WithContext(ctx).Where("user_id = ?", uid).Order("id").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	var events []model.ActivityEvent
	if err := withAnnotations(s.db.WithContext(ctx)).Where("user_id = ?", uid).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	byActivity := make(map[int][]model.ActivityEvent)
	for _, e := range events {
		byActivity[e.ActivityID] = append(byActivity[e.ActivityID], e)
	}
	scores := make([]scoring.ActivityScore, 0, len(activities))
	for _, a := range activities {
		scores = append(scores, scoring.ActivityScore{Activity: a, Total: scoring.ActivityTotal(byActivity[a.ID])})
	}
	return scoring.Rank(scores), nil
}

// owned loads an activity only if uid owns it; anything else is ErrNotFound.
func (s *ActivityService) owned(ctx context.Context, uid, id int) (*model.Activity, error) {
	var a model.Activity
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).First(&a).Error; err != nil {
		return nil, notFound(err, "activity")
	}
	return &a, nil
}

// withAnnotations preloads what scoring and the digest need.
func withAnnotations(db *gorm.DB) *gorm.DB {
	return db.Preload("Activity").
		Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Annotations.Emotion.Type")
}
