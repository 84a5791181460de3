// Package digest assembles the plain-text digest of a set of logged events
// that is handed to the summarizer.
package digest

import (
	"fmt"
	"strings"

	"what-to-do/internal/model"
)

var stateLabels = map[model.EmotionState]string{
	model.StateBefore: "before it",
	model.StateDuring: "during it",
	model.StateAfter:  "after it",
}

// Build renders one sentence per event and joins them with single spaces.
// Events need Activity and Annotations.Emotion loaded.
func Build(events []model.ActivityEvent) string {
	sentences := make([]string, 0, len(events))
	for _, e := range events {
		sentences = append(sentences, Sentence(e))
	}
	return strings.Join(sentences, " ")
}

// BuildDated is Build for events spanning several days: each day's sentences
// are prefixed with its date and days are separated by newlines. Events must
// be ordered by date.
func BuildDated(events []model.ActivityEvent) string {
	var days []string
	for i := 0; i < len(events); {
		j := i
		for j < len(events) && events[j].EventDate.Equal(events[i].EventDate) {
			j++
		}
		d := events[i].EventDate
		days = append(days, fmt.Sprintf("On %s, %s: %s", d.Weekday(), d.Format("2006-01-02"), Build(events[i:j])))
		i = j
	}
	return strings.Join(days, "\n")
}

func Sentence(e model.ActivityEvent) string {
	duration := "an unspecified time"
	if e.DurationMinutes != nil {
		duration = FormatDuration(*e.DurationMinutes)
	}
	comment := strings.TrimSpace(e.Comment)
	if comment == "" {
		comment = "none"
	}
	s := fmt.Sprintf("During the activity of %s, which lasted for %s, %s. The activity had the following comment: %s.",
		e.Activity.Name, duration, emotionClauses(e.Annotations), comment)
	if desc := strings.TrimSpace(e.Activity.Description); desc != "" {
		s += " The activity is described as: " + desc + "."
	}
	return s
}

func emotionClauses(annotations []model.EmotionAnnotation) string {
	byState := make(map[model.EmotionState][]string, len(model.States))
	for _, a := range annotations {
		byState[a.State] = append(byState[a.State], renderEmotion(a))
	}
	var clauses []string
	for _, st := range model.States {
		names := byState[st]
		if len(names) == 0 {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s the following emotions were felt: %s", stateLabels[st], strings.Join(names, ", ")))
	}
	if len(clauses) == 0 {
		return "no emotions were recorded"
	}
	return strings.Join(clauses, "; ")
}

func renderEmotion(a model.EmotionAnnotation) string {
	if note := strings.TrimSpace(a.Note); note != "" {
		return fmt.Sprintf("%s (Comment: %s)", a.Emotion.Name, note)
	}
	return a.Emotion.Name
}

// FormatDuration renders minutes as "1 hour 5 minutes", "45 minutes", "2 hours".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0 minutes"
	}
	h, m := minutes/60, minutes%60
	var parts []string
	switch {
	case h == 1:
		parts = append(parts, "1 hour")
	case h > 1:
		parts = append(parts, fmt.Sprintf("%d hours", h))
	}
	switch {
	case m == 1:
		parts = append(parts, "1 minute")
	case m > 1:
		parts = append(parts, fmt.Sprintf("%d minutes", m))
	}
	return strings.Join(parts, " ")
}
