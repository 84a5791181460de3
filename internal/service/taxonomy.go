package service

import (
	"context"
	"fmt"

	"what-to-do/internal/model"

	"gorm.io/gorm"
)

type TaxonomyService struct{ db *gorm.DB }

func NewTaxonomyService(db *gorm.DB) *TaxonomyService { return &TaxonomyService{db: db} }

type CategoryGroup struct {
	Category model.EmotionCategory `json:"category"`
	Emotions []model.Emotion       `json:"emotions"`
}

// Grouped lists emotions grouped by category, categories by id and emotions
// by name within each. Categories without emotions are left out.
func (s *TaxonomyService) Grouped(ctx context.Context) ([]CategoryGroup, error) {
	var cats []model.EmotionCategory
	if err := s.db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	var emotions []model.Emotion
	if err := s.db.WithContext(ctx).Preload("Type").Order("name, id").Find(&emotions).Error; err != nil {
		return nil, fmt.Errorf("query emotions: %w", err)
	}

	byCat := make(map[int][]model.Emotion, len(cats))
	for _, e := range emotions {
		byCat[e.CategoryID] = append(byCat[e.CategoryID], e)
	}
	groups := make([]CategoryGroup, 0, len(cats))
	for _, c := range cats {
		if len(byCat[c.ID]) == 0 {
			continue
		}
		groups = append(groups, CategoryGroup{Category: c, Emotions: byCat[c.ID]})
	}
	return groups, nil
}

func (s *TaxonomyService) Emotion(ctx context.Context, id int) (*model.Emotion, error) {
	var e model.Emotion
	if err := s.db.WithContext(ctx).Preload("Type").Preload("Category").First(&e, id).Error; err != nil {
		return nil, notFound(err, "emotion")
	}
	return &e, nil
}

var defaultTaxonomy = []struct {
	category string
	positive bool
	emotions []string
}{
	{"Joy", true, []string{"Happy", "Excited", "Proud", "Grateful"}},
	{"Calm", true, []string{"Relaxed", "Content", "Focused"}},
	{"Sadness", false, []string{"Sad", "Lonely", "Disappointed"}},
	{"Anger", false, []string{"Angry", "Frustrated", "Irritated"}},
	{"Fear", false, []string{"Anxious", "Stressed", "Worried"}},
}

// Seed installs the default taxonomy once; it is a no-op when any emotion
// type already exists. Returns the number of emotions created.
func (s *TaxonomyService) Seed(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.EmotionType{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count emotion types: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		positive := model.EmotionType{Name: "Positive", Weight: 1}
		negative := model.EmotionType{Name: "Negative", Weight: -1}
		if err := tx.Create(&positive).Error; err != nil {
			return err
		}
		if err := tx.Create(&negative).Error; err != nil {
			return err
		}
		for _, group := range defaultTaxonomy {
			cat := model.EmotionCategory{Name: group.category}
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
			typeID := negative.ID
			if group.positive {
				typeID = positive.ID
			}
			for _, name := range group.emotions {
				if err := tx.Create(&model.Emotion{Name: name, CategoryID: cat.ID, TypeID: typeID}).Error; err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed taxonomy: %w", err)
	}
	return created, nil
}
