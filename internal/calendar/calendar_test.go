package calendar

import (
	"errors"
	"testing"
	"time"

	"what-to-do/internal/model"
)

// Thursday noon, local time.
var now = time.Date(2024, time.April, 4, 12, 0, 0, 0, time.Local)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestResolveDayDefaultsToToday(t *testing.T) {
	want := mustParse(t, "2024-04-04")
	for _, in := range []string{"", "not-a-date", "2024-13-45", "04/04/2024"} {
		d := ResolveDay(in, now)
		if !d.Date.Equal(want) {
			t.Fatalf("%q: got=%s want=%s", in, Format(d.Date), Format(want))
		}
		if d.Status != StatusToday {
			t.Fatalf("%q: status got=%q want=%q", in, d.Status, StatusToday)
		}
	}
	if ResolveDay("not-a-date", now) != ResolveDay("", now) {
		t.Fatalf("malformed input should resolve exactly like no input")
	}
}

func TestResolveDayNeighbours(t *testing.T) {
	d := ResolveDay("2024-03-01", now)
	if Format(d.Prev) != "2024-02-29" || Format(d.Next) != "2024-03-02" {
		t.Fatalf("prev/next: got=%s/%s", Format(d.Prev), Format(d.Next))
	}
	if d.Weekday != "Friday" {
		t.Fatalf("weekday: got=%q", d.Weekday)
	}
}

func TestDayStatus(t *testing.T) {
	cases := map[string]string{
		"2024-04-04": StatusToday,
		"2024-04-05": StatusTomorrow,
		"2024-04-03": StatusYesterday,
		"2024-04-06": "",
		"2024-04-02": "",
		"2023-04-04": "",
	}
	for in, want := range cases {
		if got := ResolveDay(in, now).Status; got != want {
			t.Fatalf("%s: got=%q want=%q", in, got, want)
		}
	}
}

func TestResolveWeekSnapsToMonday(t *testing.T) {
	for _, in := range []string{"2024-04-01", "2024-04-03", "2024-04-07"} {
		w := ResolveWeek(in, now)
		if Format(w.Start) != "2024-04-01" {
			t.Fatalf("%s: start got=%s", in, Format(w.Start))
		}
		if Format(w.End) != "2024-04-07" {
			t.Fatalf("%s: end got=%s", in, Format(w.End))
		}
	}
}

func TestResolveWeekHasSevenConsecutiveDates(t *testing.T) {
	w := ResolveWeek("2024-02-28", now)
	seen := map[string]bool{}
	for i, d := range w.Dates {
		if !d.Equal(w.Start.AddDate(0, 0, i)) {
			t.Fatalf("date %d: got=%s", i, Format(d))
		}
		seen[Format(d)] = true
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 distinct dates, got %d", len(seen))
	}
	if !w.End.Equal(w.Start.AddDate(0, 0, 6)) {
		t.Fatalf("end should be start+6")
	}
	if Format(w.Dates[6]) != Format(w.End) {
		t.Fatalf("last date should be the inclusive end")
	}
	if Format(w.Prev) != "2024-02-19" || Format(w.Next) != "2024-03-04" {
		t.Fatalf("prev/next: got=%s/%s", Format(w.Prev), Format(w.Next))
	}
}

func TestResolveWeekCurrent(t *testing.T) {
	if !ResolveWeek("", now).IsCurrent {
		t.Fatalf("default week should be current")
	}
	if !ResolveWeek("garbage", now).IsCurrent {
		t.Fatalf("malformed week should fall back to current")
	}
	if ResolveWeek("2024-04-08", now).IsCurrent {
		t.Fatalf("next week should not be current")
	}
}

func TestGroupEventsByDateFillsEmptyDays(t *testing.T) {
	w := ResolveWeek("2024-04-01", now)
	events := []model.ActivityEvent{
		{ID: 1, EventDate: w.Dates[0]},
		{ID: 2, EventDate: w.Dates[3]},
		{ID: 3, EventDate: w.Dates[0]},
		{ID: 4, EventDate: w.Next},
	}
	buckets := GroupEventsByDate(events, w)
	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}
	for i, b := range buckets {
		if !b.Date.Equal(w.Dates[i]) {
			t.Fatalf("bucket %d date: got=%s", i, Format(b.Date))
		}
		if b.Events == nil {
			t.Fatalf("bucket %d should be an empty list, not nil", i)
		}
	}
	if len(buckets[0].Events) != 2 || buckets[0].Events[0].ID != 1 || buckets[0].Events[1].ID != 3 {
		t.Fatalf("day 0 should keep input order: %+v", buckets[0].Events)
	}
	if len(buckets[3].Events) != 1 || buckets[3].Events[0].ID != 2 {
		t.Fatalf("day 3: %+v", buckets[3].Events)
	}
	for _, i := range []int{1, 2, 4, 5, 6} {
		if len(buckets[i].Events) != 0 {
			t.Fatalf("day %d should be empty", i)
		}
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2024-04-01", "2024-04-03")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if len(r.Days()) != 3 {
		t.Fatalf("expected 3 days, got %d", len(r.Days()))
	}
	if _, err := ParseRange("2024-04-03", "2024-04-01"); !errors.Is(err, ErrInvertedRange) {
		t.Fatalf("expected ErrInvertedRange, got %v", err)
	}
	if _, err := ParseRange("2024-04-03", "nope"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseRange("2024-04-03", "2024-04-03"); err != nil {
		t.Fatalf("single-day range: %v", err)
	}
}
