package model

// Request and response bodies of the HTTP API.

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ActivityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AnnotationRequest struct {
	EmotionID int          `json:"emotion_id" binding:"required"`
	Intensity int          `json:"intensity"`
	Note      string       `json:"note"`
	State     EmotionState `json:"state"`
}

// EventRequest logs or edits an event. Date is only read on edit; logging
// takes the date from the path.
type EventRequest struct {
	ActivityID int                `json:"activity_id"`
	Date       string             `json:"date"`
	Time       *string            `json:"time"`
	Hours      *int               `json:"hours"`
	Minutes    *int               `json:"minutes"`
	Comment    string             `json:"comment"`
	Emotion    *AnnotationRequest `json:"emotion"`
}

type DayResponse struct {
	Date       string          `json:"date"`
	Status     string          `json:"status"`
	Weekday    string          `json:"weekday"`
	Prev       string          `json:"prev"`
	Next       string          `json:"next"`
	Events     []ActivityEvent `json:"events"`
	DayScore   float64         `json:"day_score"`
	Summary    string          `json:"summary,omitempty"`
	HasSummary bool            `json:"has_summary"`
}

type WeekDay struct {
	Date    string          `json:"date"`
	Weekday string          `json:"weekday"`
	Status  string          `json:"status"`
	Events  []ActivityEvent `json:"events"`
}

type WeekResponse struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Prev      string    `json:"prev"`
	Next      string    `json:"next"`
	IsCurrent bool      `json:"is_current"`
	Days      []WeekDay `json:"days"`
}

type SummaryRequest struct {
	Regenerate bool `json:"regenerate"`
}

type SummaryResponse struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
	Found   bool   `json:"found"`
}

type RangeRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}
