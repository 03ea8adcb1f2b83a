package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msu-timetable/backend/internal/feed"
	"github.com/msu-timetable/backend/internal/schedule"
)

var msk = time.FixedZone("MSK", 3*60*60)

type fakeTrigger struct {
	triggered []string
	known     map[string]bool
}

func (f *fakeTrigger) TriggerSync(groupID string) bool {
	if !f.known[groupID] {
		return false
	}
	f.triggered = append(f.triggered, groupID)
	return true
}

func publishTestFeed(t *testing.T, root string) {
	t.Helper()
	pub, err := feed.NewPublisher(root, msk)
	require.NoError(t, err)
	snap := &schedule.Snapshot{
		GroupID:    "104",
		CapturedAt: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		Events: []schedule.Event{
			{GroupID: "104", Date: "2026-09-07", Start: "09:00", End: "10:35", Title: "История России"},
		},
	}
	_, _, err = pub.Publish(snap, "104б")
	require.NoError(t, err)
}

func TestCalendarEndpoint(t *testing.T) {
	root := t.TempDir()
	publishTestFeed(t, root)
	router := NewRouter(root, "/timetable", msk, nil, nil)

	for _, path := range []string{"/timetable/104", "/timetable/104.ics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
		assert.NotEmpty(t, rec.Header().Get("ETag"))
	}
}

func TestCalendarAnswersHead(t *testing.T) {
	root := t.TempDir()
	publishTestFeed(t, root)
	router := NewRouter(root, "/timetable", msk, nil, nil)

	for _, path := range []string{"/timetable/104.ics", "/timetable/index.json", "/timetable/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("HEAD", path, nil))

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("Content-Type"), path)
	}
}

func TestCalendarNotModified(t *testing.T) {
	root := t.TempDir()
	publishTestFeed(t, root)
	router := NewRouter(root, "/timetable", msk, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/timetable/104.ics", nil))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/timetable/104.ics", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestCalendarUnknownGroupIs404(t *testing.T) {
	router := NewRouter(t.TempDir(), "/timetable", msk, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/timetable/999.ics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexEndpoint(t *testing.T) {
	root := t.TempDir()
	publishTestFeed(t, root)
	router := NewRouter(root, "/timetable", msk, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/timetable/index.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var idx feed.Index
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	require.Len(t, idx.Groups, 1)
	assert.Equal(t, "104", idx.Groups[0].GroupID)
	assert.Equal(t, "104б", idx.Groups[0].Name)
}

func TestLandingPageListsGroups(t *testing.T) {
	root := t.TempDir()
	publishTestFeed(t, root)
	router := NewRouter(root, "/timetable", msk, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/timetable/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "104б")
	assert.Contains(t, rec.Body.String(), "/timetable/104.ics")
}

func TestHealthEndpointWithoutDB(t *testing.T) {
	router := NewRouter(t.TempDir(), "/timetable", msk, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"file"`)
}

func TestTriggerSyncEndpoint(t *testing.T) {
	trigger := &fakeTrigger{known: map[string]bool{"104": true}}
	router := NewRouter(t.TempDir(), "/timetable", msk, nil, trigger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/groups/104/sync", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"104"}, trigger.triggered)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/groups/999/sync", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
