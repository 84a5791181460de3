package model

import "time"

type User struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username"`
	Password  string    `json:"-"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	Email     string    `gorm:"size:254" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type EmotionCategory struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100" json:"name"`
}

// EmotionType carries the sign an emotion contributes to a score: +1 or -1.
type EmotionType struct {
	ID     int    `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:100" json:"name"`
	Weight int    `json:"weight"`
}

type Emotion struct {
	ID         int             `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:255" json:"name"`
	CategoryID int             `gorm:"index" json:"category_id"`
	TypeID     int             `gorm:"index" json:"type_id"`
	Category   EmotionCategory `gorm:"foreignKey:CategoryID" json:"category"`
	Type       EmotionType     `gorm:"foreignKey:TypeID" json:"type"`
}

type Activity struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	UserID      int    `gorm:"index" json:"user_id"`
	User        *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name        string `gorm:"size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// ActivityEvent is one logged occurrence of an Activity. ActivityScore is a
// persisted cache; ScoreDirty marks it stale after annotation changes.
type ActivityEvent struct {
	ID              int                 `gorm:"primaryKey" json:"id"`
	ActivityID      int                 `gorm:"index" json:"activity_id"`
	Activity        Activity            `gorm:"constraint:OnDelete:CASCADE" json:"activity"`
	UserID          int                 `gorm:"index:idx_event_user_date" json:"user_id"`
	User            *User               `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time           `json:"created_at"`
	EventDate       time.Time           `gorm:"type:date;index:idx_event_user_date" json:"event_date"`
	EventTime       *string             `gorm:"size:8" json:"event_time,omitempty"`
	DurationMinutes *int                `json:"duration_minutes,omitempty"`
	Comment         string              `gorm:"type:text" json:"comment"`
	ActivityScore   float64             `gorm:"default:0" json:"activity_score"`
	ScoreDirty      bool                `gorm:"default:false" json:"-"`
	Annotations     []EmotionAnnotation `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"annotations"`
}

type EmotionState string

const (
	StateBefore EmotionState = "BEFORE"
	StateDuring EmotionState = "DURING"
	StateAfter  EmotionState = "AFTER"
)

// States lists lifecycle states in the order they are reported.
var States = []EmotionState{StateBefore, StateDuring, StateAfter}

func (s EmotionState) Valid() bool {
	return s == StateBefore || s == StateDuring || s == StateAfter
}

type EmotionAnnotation struct {
	ID        int          `gorm:"primaryKey" json:"id"`
	UserID    int          `gorm:"index" json:"user_id"`
	User      *User        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	EventID   int          `gorm:"index" json:"event_id"`
	EmotionID int          `gorm:"index" json:"emotion_id"`
	Emotion   Emotion      `json:"emotion"`
	Intensity int          `json:"intensity"`
	Note      string       `gorm:"type:text" json:"note"`
	State     EmotionState `gorm:"size:20" json:"state"`
}

type DaySummary struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	UserID      int       `gorm:"uniqueIndex:uk_user_date" json:"user_id"`
	SummaryDate time.Time `gorm:"type:date;uniqueIndex:uk_user_date" json:"summary_date"`
	Summary     string    `gorm:"type:text" json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string              { return "users" }
func (EmotionCategory) TableName() string   { return "emotion_categories" }
func (EmotionType) TableName() string       { return "emotion_types" }
func (Emotion) TableName() string           { return "emotions" }
func (Activity) TableName() string          { return "activities" }
func (ActivityEvent) TableName() string     { return "activity_events" }
func (EmotionAnnotation) TableName() string { return "emotion_annotations" }
func (DaySummary) TableName() string        { return "day_summaries" }

// All lists every persisted entity in migration order.
func All() []any {
	return []any{
		&User{}, &EmotionCategory{}, &EmotionType{}, &Emotion{},
		&Activity{}, &ActivityEvent{}, &EmotionAnnotation{}, &DaySummary{},
	}
}
