package main

import (
	"context"

	"what-to-do/internal/logger"
	"what-to-do/internal/service"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// Each user's rows live in activity_events_u<id> and day_summaries_u<id>;
// the asking request only ever names the caller's own pair.
var diaryKnowledge = []sdk.NL2SQLKnowledgeCreateRequest{
	{Type: "glossary", Key: "event", Value: []string{"a row of an activity_events_u<id> table: one time the user did an activity, with the emotions they felt"}},
	{Type: "glossary", Key: "mood score", Value: []string{"activity_score; feelings after an activity weigh most, before it least"}},
	{Type: "glossary", Key: "day summary", Value: []string{"the summary column of a day_summaries_u<id> table, an AI-written recap of one day"}},

	{Type: "synonyms", Key: "activity/hobby/task/what I did", Value: []string{"the activity column"}},
	{Type: "synonyms", Key: "day/date/when", Value: []string{"the event_date column"}},
	{Type: "synonyms", Key: "feeling/mood/emotion", Value: []string{"the emotions column"}},

	{Type: "logic", Key: "rows with deleted = 1 were removed by the user and must always be excluded", Value: []string{"WHERE deleted = 0"}},
	{Type: "logic", Key: "an activity's total score is the SUM of activity_score over its events, not the average", Value: []string{"SUM(activity_score) GROUP BY activity"}},
	{Type: "logic", Key: "this week runs from Monday to Sunday", Value: []string{"event_date BETWEEN the Monday of the current week and the following Sunday"}},
	{Type: "logic", Key: "a good day has a positive sum of activity_score", Value: []string{"SUM(activity_score) > 0 GROUP BY event_date"}},

	{Type: "case_library", Key: "which activity makes me happiest", Value: []string{"SELECT activity, SUM(activity_score) AS total FROM activity_events_u1 WHERE deleted = 0 GROUP BY activity ORDER BY total DESC LIMIT 1"}},
	{Type: "case_library", Key: "how did I feel this week", Value: []string{"SELECT event_date, SUM(activity_score) AS score FROM activity_events_u1 WHERE deleted = 0 AND event_date >= DATE_SUB(CURDATE(), INTERVAL WEEKDAY(CURDATE()) DAY) GROUP BY event_date ORDER BY event_date"}},
	{Type: "case_library", Key: "what did I do yesterday", Value: []string{"SELECT activity, event_time, duration_minutes, comment FROM activity_events_u1 WHERE deleted = 0 AND event_date = DATE_SUB(CURDATE(), INTERVAL 1 DAY)"}},
}

func initKnowledge(ctx context.Context, client *sdk.RawClient) error {
	for _, k := range diaryKnowledge {
		resp, err := client.CreateKnowledge(ctx, &k)
		if err != nil {
			if service.IsDuplicate(err) {
				logger.Info("knowledge.exists", "type", k.Type, "key", k.Key)
				continue
			}
			return err
		}
		logger.Info("knowledge.created", "type", k.Type, "key", k.Key, "id", resp.ID)
	}
	return nil
}
