package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/config"
	"what-to-do/internal/logger"
	"what-to-do/internal/model"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// CatalogDBName is the MOI catalog database the diary tables live in.
const CatalogDBName = "what_to_do"

// CatalogTable describes one mirrored table. Every user gets a copy named
// <Name>_u<user id>, so data asking can be pointed at one user's rows only.
type CatalogTable struct {
	Name    string
	Comment string
	Columns []sdk.Column
}

var SummaryTable = CatalogTable{
	Name:    "day_summaries",
	Comment: "AI-written summary of one day",
	Columns: []sdk.Column{
		{Name: "user_id", Type: "INT", Comment: "owner of the diary"},
		{Name: "summary_date", Type: "DATE", IsPk: true, Comment: "day the summary describes"},
		{Name: "summary", Type: "TEXT", Comment: "AI-generated summary of the day"},
		{Name: "synced_at", Type: "DATETIME", Comment: "time the row was uploaded"},
	},
}

var EventTable = CatalogTable{
	Name:    "activity_events",
	Comment: "one logged occurrence of an activity with the emotions felt",
	Columns: []sdk.Column{
		{Name: "id", Type: "INT", IsPk: true, Comment: "event id"},
		{Name: "user_id", Type: "INT", Comment: "owner of the diary"},
		{Name: "activity", Type: "VARCHAR(255)", Comment: "activity name, e.g. Running"},
		{Name: "event_date", Type: "DATE", Comment: "day the activity happened"},
		{Name: "event_time", Type: "VARCHAR(8)", Comment: "time of day, HH:MM, may be empty"},
		{Name: "duration_minutes", Type: "INT", Comment: "how long it lasted, may be empty"},
		{Name: "comment", Type: "TEXT", Comment: "free-text note on the event"},
		{Name: "activity_score", Type: "DOUBLE", Comment: "mood score; positive means the activity felt good"},
		{Name: "emotions", Type: "TEXT", Comment: "STATE:Emotion:intensity entries separated by ';'"},
		{Name: "deleted", Type: "INT", Comment: "1 when the user deleted the event; ignore those rows"},
	},
}

// UserTable is the name of t's copy for one user.
func UserTable(t CatalogTable, uid int) string {
	return fmt.Sprintf("%s_u%d", t.Name, uid)
}

// UserTables lists every mirrored table of one user.
func UserTables(uid int) []string {
	return []string{UserTable(EventTable, uid), UserTable(SummaryTable, uid)}
}

// CatalogSync mirrors events and day summaries into per-user MOI catalog
// tables so data asking can answer questions about them. Failures are
// logged only.
type CatalogSync struct {
	raw *sdk.RawClient
	sdk *sdk.SDKClient
	cfg config.MOIConfig

	mu     sync.Mutex
	tables map[string]sdk.TableID
}

// NewCatalogSync returns nil unless both a client and a catalog database are
// configured; a nil *CatalogSync is safe to use and does nothing.
func NewCatalogSync(raw *sdk.RawClient, cfg config.MOIConfig) *CatalogSync {
	if raw == nil || cfg.DatabaseID == 0 {
		return nil
	}
	return &CatalogSync{raw: raw, sdk: sdk.NewSDKClient(raw), cfg: cfg, tables: map[string]sdk.TableID{}}
}

// SyncDaySummary runs in the background and survives request cancellation.
func (s *CatalogSync) SyncDaySummary(ctx context.Context, uid int, date time.Time, summary string) {
	if s == nil {
		return
	}
	name := fmt.Sprintf("summary_%d_%s.csv", uid, calendar.Format(date))
	go s.importCSV(context.WithoutCancel(ctx), SummaryTable, uid, summaryRow(uid, date, summary, time.Now()), name)
}

func (s *CatalogSync) SyncEvent(ctx context.Context, e model.ActivityEvent) {
	if s == nil {
		return
	}
	go s.importCSV(context.WithoutCancel(ctx), EventTable, e.UserID, eventRow(e, false), fmt.Sprintf("event_%d.csv", e.ID))
}

// RemoveEvent replaces the mirrored row with a tombstone; the catalog has no
// row delete.
func (s *CatalogSync) RemoveEvent(ctx context.Context, e model.ActivityEvent) {
	if s == nil {
		return
	}
	go s.importCSV(context.WithoutCancel(ctx), EventTable, e.UserID, eventRow(e, true), fmt.Sprintf("event_%d_deleted.csv", e.ID))
}

func summaryRow(uid int, date time.Time, summary string, at time.Time) string {
	return fmt.Sprintf("%d,%s,%s,%s\n", uid, calendar.Format(date), esc(summary), at.Format("2006-01-02 15:04:05"))
}

func eventRow(e model.ActivityEvent, deleted bool) string {
	eventTime, duration := "", ""
	if e.EventTime != nil {
		eventTime = *e.EventTime
	}
	if e.DurationMinutes != nil {
		duration = fmt.Sprint(*e.DurationMinutes)
	}
	var emotions []string
	for _, a := range e.Annotations {
		emotions = append(emotions, fmt.Sprintf("%s:%s:%d", a.State, a.Emotion.Name, a.Intensity))
	}
	tomb := 0
	if deleted {
		tomb = 1
	}
	return fmt.Sprintf("%d,%d,%s,%s,%s,%s,%s,%g,%s,%d\n",
		e.ID, e.UserID, esc(e.Activity.Name), calendar.Format(e.EventDate), eventTime,
		duration, esc(e.Comment), e.ActivityScore, esc(strings.Join(emotions, ";")), tomb)
}

func columnMapping(t CatalogTable) []sdk.FileAndTableColumnMapping {
	m := make([]sdk.FileAndTableColumnMapping, len(t.Columns))
	for i, c := range t.Columns {
		m[i] = sdk.FileAndTableColumnMapping{TableColumn: c.Name, Column: c.Name, ColNumInFile: int32(i + 1)}
	}
	return m
}

// tableID returns the id of the user's copy of t, creating it on first use.
func (s *CatalogSync) tableID(ctx context.Context, t CatalogTable, uid int) (sdk.TableID, error) {
	name := UserTable(t, uid)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tables[name]; ok {
		return id, nil
	}

	id, err := s.findTable(ctx, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		resp, err := s.raw.CreateTable(ctx, &sdk.TableCreateRequest{
			DatabaseID: sdk.DatabaseID(s.cfg.DatabaseID),
			Name:       name,
			Columns:    t.Columns,
			Comment:    t.Comment,
		})
		switch {
		case err == nil:
			id = resp.TableID
			logger.Ctx(ctx).Info("catalog.table_created", "table", name, "id", id)
		case IsDuplicate(err):
			if id, err = s.findTable(ctx, name); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("create table %s: %w", name, err)
		}
	}
	if id == 0 {
		return 0, fmt.Errorf("table %s not found in database %d", name, s.cfg.DatabaseID)
	}
	s.tables[name] = id
	return id, nil
}

func (s *CatalogSync) findTable(ctx context.Context, name string) (sdk.TableID, error) {
	resp, err := s.raw.GetDatabaseChildren(ctx, &sdk.DatabaseChildrenRequest{DatabaseID: sdk.DatabaseID(s.cfg.DatabaseID)})
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}
	for _, c := range resp.List {
		if c.Name == name {
			id, err := strconv.ParseInt(c.ID, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("table %s id %q: %w", name, c.ID, err)
			}
			return sdk.TableID(id), nil
		}
	}
	return 0, nil
}

func (s *CatalogSync) importCSV(ctx context.Context, t CatalogTable, uid int, csv, fileName string) {
	tableID, err := s.tableID(ctx, t, uid)
	if err != nil {
		logger.Ctx(ctx).Warn("catalog.table", "table", UserTable(t, uid), "err", err)
		return
	}
	resp, err := s.raw.UploadLocalFile(ctx, bytes.NewReader([]byte(csv)), fileName, []sdk.FileMeta{{Filename: fileName, Path: "/"}})
	if err != nil {
		logger.Ctx(ctx).Warn("catalog.upload", "table", tableID, "err", err)
		return
	}
	if len(resp.ConnFileIds) == 0 {
		logger.Ctx(ctx).Warn("catalog.upload", "table", tableID, "err", "no conn_file_ids")
		return
	}

	_, err = s.sdk.ImportLocalFileToTable(ctx, &sdk.TableConfig{
		ConnFileIDs:      resp.ConnFileIds,
		NewTable:         false,
		DatabaseID:       sdk.DatabaseID(s.cfg.DatabaseID),
		TableID:          tableID,
		IsColumnName:     false,
		RowStart:         1,
		Conflict:         sdk.ConflictPolicyReplace,
		ExistedTable:     columnMapping(t),
		ExistedTableOpts: sdk.ExistedTableOptions{Method: sdk.ExistedTableOptionAppend},
	})
	if err != nil {
		logger.Ctx(ctx).Warn("catalog.import", "table", tableID, "file", fileName, "err", err)
		return
	}
	logger.Ctx(ctx).Info("catalog.sync", "table", tableID, "file", fileName)
}

// IsDuplicate reports whether a catalog error means the object already exists.
func IsDuplicate(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "already exist") || strings.Contains(s, "exists") || strings.Contains(s, "conflict")
}

func esc(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
