package calendar

import (
	"time"

	"what-to-do/internal/model"
)

type DayBucket struct {
	Date   time.Time
	Events []model.ActivityEvent
}

// GroupEventsByDate buckets events into the seven days of w. Every day gets an
// entry, empty when nothing was logged; within a day the input order is kept.
func GroupEventsByDate(events []model.ActivityEvent, w Week) []DayBucket {
	buckets := make([]DayBucket, len(w.Dates))
	index := make(map[string]int, len(w.Dates))
	for i, d := range w.Dates {
		buckets[i] = DayBucket{Date: d, Events: []model.ActivityEvent{}}
		index[Format(d)] = i
	}
	for _, e := range events {
		i, ok := index[Format(Date(e.EventDate))]
		if !ok {
			continue
		}
		buckets[i].Events = append(buckets[i].Events, e)
	}
	return buckets
}
