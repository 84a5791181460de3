package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// client drives a running server over HTTP. Tests skip unless E2E_BASE_URL
// points at one, e.g. http://localhost:9871.
type client struct {
	t     *testing.T
	base  string
	token string
	http  *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		t.Skip("E2E_BASE_URL not set")
	}
	return &client{t: t, base: base, http: &http.Client{Timeout: 2 * time.Minute}}
}

func (c *client) do(method, path string, body any, want int, out any) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		c.t.Fatalf("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, want, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			c.t.Fatalf("%s %s: decode: %v body=%s", method, path, err, data)
		}
	}
}

func (c *client) signup() {
	c.t.Helper()
	name := fmt.Sprintf("e2e_%d", time.Now().UnixNano())
	var resp struct {
		Token string `json:"token"`
	}
	c.do("POST", "/api/signup", map[string]string{"username": name, "password": "secret123", "first_name": "E2E"}, http.StatusCreated, &resp)
	c.token = resp.Token
}

func TestDiaryFlow(t *testing.T) {
	c := newClient(t)
	c.signup()

	var taxonomy struct {
		Categories []struct {
			Emotions []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"emotions"`
		} `json:"categories"`
	}
	c.do("GET", "/api/emotions", nil, http.StatusOK, &taxonomy)
	if len(taxonomy.Categories) == 0 || len(taxonomy.Categories[0].Emotions) == 0 {
		t.Fatalf("no emotions seeded")
	}
	emotion := taxonomy.Categories[0].Emotions[0].ID

	var activity struct {
		ID int `json:"id"`
	}
	c.do("POST", "/api/activities", map[string]string{"name": "Running"}, http.StatusCreated, &activity)

	var event struct {
		ID            int     `json:"id"`
		ActivityScore float64 `json:"activity_score"`
	}
	c.do("POST", "/api/days/today/events", map[string]any{
		"activity_id": activity.ID,
		"time":        "07:30",
		"minutes":     45,
		"emotion":     map[string]any{"emotion_id": emotion, "intensity": 4, "state": "AFTER"},
	}, http.StatusCreated, &event)
	if event.ActivityScore == 0 {
		t.Fatalf("event score not computed")
	}

	var day struct {
		Events []struct {
			ID int `json:"id"`
		} `json:"events"`
	}
	c.do("GET", "/api/days", nil, http.StatusOK, &day)
	if len(day.Events) != 1 || day.Events[0].ID != event.ID {
		t.Fatalf("day events=%+v", day.Events)
	}

	var ranked struct {
		Activities []struct {
			Total float64 `json:"total_score"`
		} `json:"activities"`
	}
	c.do("GET", "/api/activities", nil, http.StatusOK, &ranked)
	if len(ranked.Activities) != 1 || ranked.Activities[0].Total != event.ActivityScore {
		t.Fatalf("ranked=%+v", ranked.Activities)
	}

	c.do("DELETE", fmt.Sprintf("/api/activities/%d", activity.ID), nil, http.StatusNoContent, nil)
	c.do("GET", fmt.Sprintf("/api/events/%d/score", event.ID), nil, http.StatusNotFound, nil)
}

// Needs a configured LLM endpoint on the server.
func TestDaySummary(t *testing.T) {
	if os.Getenv("E2E_LLM") == "" {
		t.Skip("E2E_LLM not set")
	}
	c := newClient(t)
	c.signup()

	var activity struct {
		ID int `json:"id"`
	}
	c.do("POST", "/api/activities", map[string]string{"name": "Reading"}, http.StatusCreated, &activity)
	c.do("POST", "/api/days/today/events", map[string]any{"activity_id": activity.ID, "comment": "a chapter before bed"}, http.StatusCreated, nil)

	var summary struct {
		Summary string `json:"summary"`
		Found   bool   `json:"found"`
	}
	c.do("POST", "/api/days/today/summary", nil, http.StatusOK, &summary)
	if summary.Summary == "" || !summary.Found {
		t.Fatalf("summary=%+v", summary)
	}
	c.do("GET", "/api/days/today/summary", nil, http.StatusOK, &summary)
	if !summary.Found {
		t.Fatalf("summary not stored")
	}
}
