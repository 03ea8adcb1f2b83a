// Package scraper fetches raw timetable rows from the scraping sidecar.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/msu-timetable/backend/internal/schedule"
)

// ErrTimeout reports that the source did not answer within the configured
// deadline. The sync cycle abandons the pass and keeps the previous baseline.
var ErrTimeout = errors.New("scraper: fetch timed out")

// Source supplies the raw rows for one group's timetable.
type Source interface {
	Fetch(ctx context.Context, groupName string) ([]schedule.RawItem, error)
}

// HTTPSource pulls JSON rows from the scraper service.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads the current rows for the named group.
func (s *HTTPSource) Fetch(ctx context.Context, groupName string) ([]schedule.RawItem, error) {
	u := fmt.Sprintf("%s?group=%s", s.baseURL, url.QueryEscape(groupName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, fmt.Errorf("fetching group %s: %w", groupName, ErrTimeout)
		}
		return nil, fmt.Errorf("fetching group %s: %w", groupName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper returned status %d for group %s", resp.StatusCode, groupName)
	}

	var items []schedule.RawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding rows for group %s: %w", groupName, err)
	}
	return items, nil
}
