package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msu-timetable/backend/internal/schedule"
)

func TestFetchDecodesRows(t *testing.T) {
	var gotGroup string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGroup = r.URL.Query().Get("group")
		json.NewEncoder(w).Encode([]schedule.RawItem{
			{Date: "2026-09-07", Start: "09:00", End: "10:35", Title: "История России"},
		})
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, 5*time.Second)
	items, err := source.Fetch(context.Background(), "104б")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "История России", items[0].Title)
	assert.Equal(t, "104б", gotGroup)
}

func TestFetchRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "104б")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetchRejectsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "104б")
	assert.Error(t, err)
}

func TestFetchTimeoutMapsToErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, 20*time.Millisecond)
	_, err := source.Fetch(context.Background(), "104б")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestFetchContextDeadlineMapsToErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	source := NewHTTPSource(srv.URL, 5*time.Second)
	_, err := source.Fetch(ctx, "104б")
	require.ErrorIs(t, err, ErrTimeout)
}
