package handlers

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/msu-timetable/backend/internal/feed"
)

var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Timetable feeds</title></head>
<body>
<h1>Timetable feeds</h1>
<ul>
{{range .Groups}}<li><a href="{{$.BasePath}}/{{.GroupID}}.ics">{{.Name}}</a> &mdash; {{.EventCount}} events, updated {{.Updated}}</li>
{{else}}<li>No feeds published yet.</li>
{{end}}</ul>
</body>
</html>
`))

type landingGroup struct {
	GroupID    string
	Name       string
	EventCount int
	Updated    string
}

// Landing renders a plain HTML list of the published group feeds.
func Landing(dataRoot, basePath string, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := feed.ReadIndex(dataRoot)
		if err != nil {
			http.Error(w, "index unavailable", http.StatusInternalServerError)
			return
		}
		groups := make([]landingGroup, 0, len(index.Groups))
		for _, g := range index.Groups {
			groups = append(groups, landingGroup{
				GroupID:    g.GroupID,
				Name:       g.Name,
				EventCount: g.EventCount,
				Updated:    g.LastUpdated.In(loc).Format("2006-01-02 15:04"),
			})
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := landingTmpl.Execute(w, map[string]any{
			"Groups":   groups,
			"BasePath": basePath,
		}); err != nil {
			log.Printf("rendering landing page: %v", err)
		}
	}
}

// IndexJSON serves the published group index.
func IndexJSON(dataRoot string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := feed.ReadIndex(dataRoot)
		if err != nil {
			http.Error(w, "index unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(index)
	}
}

// Calendar serves a group's published ICS feed with ETag revalidation.
// Publication is atomic (temp file + rename) so a plain read never sees
// a partially written calendar.
func Calendar(dataRoot string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := strings.TrimSuffix(mux.Vars(r)["group"], ".ics")

		data, err := os.ReadFile(feed.CalendarPath(dataRoot, groupID))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "no calendar published for this group", http.StatusNotFound)
				return
			}
			http.Error(w, "calendar unavailable", http.StatusInternalServerError)
			return
		}

		etag := fmt.Sprintf(`"%x"`, md5.Sum(data))
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", groupID+".ics"))
		w.Write(data)
	}
}
