package service

import (
	"context"
	"errors"
	"fmt"

	"what-to-do/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidIntensity   = errors.New("intensity must be between 1 and 10")
	ErrInvalidState       = errors.New("state must be one of BEFORE, DURING, AFTER")
	ErrInvalidDuration    = errors.New("duration must not be negative")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime        = errors.New("time must be HH:MM or HH:MM:SS")
	ErrNameRequired       = errors.New("name is required")
	ErrNothingToSummarize = errors.New("no activities logged for this period")
	ErrSummarizer         = errors.New("summary generation failed")
	ErrUnknownFormat      = errors.New("unknown export format")
	ErrUserExists         = errors.New("username already taken")
	ErrBadCredentials     = errors.New("wrong username or password")
)

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

// Migrate creates or updates every table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
