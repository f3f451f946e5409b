// Package store persists sources, topics and daily reports as JSON
// files under the data directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/liuhaoran/daybrief/app/news"
)

// ReportStore keeps one JSON artifact per calendar date, keyed by the
// ISO date string.
type ReportStore struct {
	dir string
	mu  sync.Mutex
}

func NewReportStore(dir string) *ReportStore {
	return &ReportStore{dir: dir}
}

// Load reads the report for a date. A missing report returns
// (nil, nil); read or decode failures are reported so the caller can
// decide to degrade.
func (s *ReportStore) Load(date string) (*news.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(date))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", date, err)
	}

	var report news.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", date, err)
	}

	return &report, nil
}

// Save overwrites the report for its date.
func (s *ReportStore) Save(report *news.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.Date, err)
	}

	if err := os.WriteFile(s.path(report.Date), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", report.Date, err)
	}

	return nil
}

// List returns the dates with a persisted report, newest first.
func (s *ReportStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".json"))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *ReportStore) path(date string) string {
	return filepath.Join(s.dir, date+".json")
}
