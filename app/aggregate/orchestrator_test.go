package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liuhaoran/daybrief/app/news"
	"github.com/liuhaoran/daybrief/app/progress"
)

type fakeHarvester struct {
	items     []news.Item
	block     chan struct{}
	lastAs    time.Time
	started   chan struct{}
	startOnce sync.Once
}

func (f *fakeHarvester) Run(ctx context.Context, sources []news.Source, asOf time.Time) []news.Item {
	f.lastAs = asOf
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.block != nil {
		<-f.block
	}
	return f.items
}

type fakeEnricher struct {
	seen []news.Item
}

func (f *fakeEnricher) Run(ctx context.Context, items []news.Item) []news.Item {
	f.seen = items
	enriched := make([]news.Item, len(items))
	for i, item := range items {
		item.OriginalTitle = item.Title
		item.OriginalSummary = item.Summary
		enriched[i] = item
	}
	return enriched
}

type fakeSources struct {
	sources []news.Source
	err     error
}

func (f *fakeSources) Load() ([]news.Source, error) { return f.sources, f.err }

type fakeTopics struct {
	topics []news.Topic
	err    error
}

func (f *fakeTopics) Enabled() ([]news.Topic, error) { return f.topics, f.err }

type fakeReports struct {
	mu      sync.Mutex
	stored  map[string]*news.Report
	loadErr error
	saveErr error
}

func newFakeReports() *fakeReports {
	return &fakeReports{stored: make(map[string]*news.Report)}
}

func (f *fakeReports) Load(date string) (*news.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.stored[date], nil
}

func (f *fakeReports) Save(report *news.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored[report.Date] = report
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
}

func newTestOrchestrator(h Harvester, e Enricher, topics TopicLister, reports ReportStore) *Orchestrator {
	o := New(h, e, &fakeSources{sources: []news.Source{{URL: "https://example.com/feed", Name: "Example"}}},
		topics, reports, progress.Nop, time.UTC)
	o.now = fixedNow
	return o
}

func TestRunCreatesReportForToday(t *testing.T) {
	harvester := &fakeHarvester{items: []news.Item{
		{ID: "1", Title: "First", Summary: "s1", URL: "https://example.com/1", HeatIndex: 1000},
	}}
	reports := newFakeReports()

	o := newTestOrchestrator(harvester, &fakeEnricher{}, &fakeTopics{}, reports)

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Date != "2026-08-30" {
		t.Errorf("Expected today's date, got %q", report.Date)
	}
	if report.Title != "2026-08-30 AI和科技新闻整理" {
		t.Errorf("Unexpected report title %q", report.Title)
	}
	if len(report.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(report.Items))
	}
	if reports.stored["2026-08-30"] == nil {
		t.Error("Expected report persisted")
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	harvester := &fakeHarvester{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	o := newTestOrchestrator(harvester, &fakeEnricher{}, &fakeTopics{}, newFakeReports())

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Run(context.Background(), "")
	}()

	<-harvester.started
	if _, err := o.Run(context.Background(), ""); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	close(harvester.block)
	<-done

	// After the first run finishes another one is allowed.
	if _, err := o.Run(context.Background(), ""); err != nil {
		t.Errorf("Expected run after completion to succeed, got %v", err)
	}
}

func TestRunSkipsExistingItems(t *testing.T) {
	reports := newFakeReports()
	reports.stored["2026-08-30"] = &news.Report{
		ID:    "2026-08-30",
		Date:  "2026-08-30",
		Items: []news.Item{{ID: "old", Title: "Existing story", URL: "https://example.com/old"}},
	}

	harvester := &fakeHarvester{items: []news.Item{
		{ID: "old2", Title: "Existing story", URL: "https://example.com/old"},
		{ID: "new", Title: "A different fresh story", URL: "https://example.com/new"},
	}}
	enricher := &fakeEnricher{}

	o := newTestOrchestrator(harvester, enricher, &fakeTopics{}, reports)

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Items) != 2 {
		t.Fatalf("Expected 2 items (1 existing + 1 new), got %d", len(report.Items))
	}
	if report.Items[0].ID != "old" {
		t.Errorf("Expected existing item first, got %q", report.Items[0].ID)
	}
	if report.Items[1].ID != "new" {
		t.Errorf("Expected new item appended, got %q", report.Items[1].ID)
	}
	if len(enricher.seen) != 1 || enricher.seen[0].ID != "new" {
		t.Errorf("Expected only the new item enriched, got %v", enricher.seen)
	}
}

func TestRunZeroNewItemsStillPersists(t *testing.T) {
	oldCreated := fixedNow().Add(-6 * time.Hour)
	reports := newFakeReports()
	reports.stored["2026-08-30"] = &news.Report{
		ID:        "2026-08-30",
		Date:      "2026-08-30",
		Items:     []news.Item{{ID: "old", Title: "Existing story", URL: "https://example.com/old"}},
		CreatedAt: oldCreated,
	}

	harvester := &fakeHarvester{items: []news.Item{
		{ID: "dup", Title: "Existing story", URL: "https://example.com/old"},
	}}

	o := newTestOrchestrator(harvester, &fakeEnricher{}, &fakeTopics{}, reports)

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Items) != 1 {
		t.Errorf("Expected item count unchanged, got %d", len(report.Items))
	}
	if !report.CreatedAt.Equal(fixedNow()) {
		t.Errorf("Expected refreshed CreatedAt, got %v", report.CreatedAt)
	}
}

func TestRunDegradesOnReadFailure(t *testing.T) {
	reports := newFakeReports()
	reports.loadErr = errors.New("disk error")

	harvester := &fakeHarvester{items: []news.Item{
		{ID: "1", Title: "Story", URL: "https://example.com/1"},
	}}

	o := newTestOrchestrator(harvester, &fakeEnricher{}, &fakeTopics{}, reports)

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected read failure to degrade, got %v", err)
	}
	if len(report.Items) != 1 {
		t.Errorf("Expected harvested item treated as new, got %d items", len(report.Items))
	}
}

func TestRunFailsOnSaveFailure(t *testing.T) {
	reports := newFakeReports()
	reports.saveErr = errors.New("disk full")

	harvester := &fakeHarvester{items: []news.Item{{ID: "1", Title: "Story", URL: "https://example.com/1"}}}

	tracker := progress.NewTracker()
	o := New(harvester, &fakeEnricher{}, &fakeSources{sources: []news.Source{{URL: "https://example.com/feed", Name: "Example"}}},
		&fakeTopics{}, reports, tracker, time.UTC)
	o.now = fixedNow

	if _, err := o.Run(context.Background(), ""); err == nil {
		t.Error("Expected error when saving fails")
	}

	// The final progress event must say what went wrong instead of
	// wiping the state with an empty message.
	last := tracker.Snapshot()
	if last.Status != progress.StatusIdle {
		t.Errorf("Expected idle status after failed save, got %q", last.Status)
	}
	if !strings.Contains(last.Message, "disk full") {
		t.Errorf("Expected failure message to carry the save error, got %q", last.Message)
	}
}

func TestRunExplicitDate(t *testing.T) {
	harvester := &fakeHarvester{}
	o := newTestOrchestrator(harvester, &fakeEnricher{}, &fakeTopics{}, newFakeReports())

	report, err := o.Run(context.Background(), "2026-08-28")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Date != "2026-08-28" {
		t.Errorf("Expected requested date, got %q", report.Date)
	}

	// The harvest cutoff is the end of the requested day.
	expected := time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC)
	if !harvester.lastAs.Equal(expected) {
		t.Errorf("Expected asOf %v, got %v", expected, harvester.lastAs)
	}
}

func TestRunInvalidDate(t *testing.T) {
	o := newTestOrchestrator(&fakeHarvester{}, &fakeEnricher{}, &fakeTopics{}, newFakeReports())

	if _, err := o.Run(context.Background(), "not-a-date"); err == nil {
		t.Error("Expected error for invalid date")
	}
}

type translatingEnricher struct{}

func (translatingEnricher) Run(ctx context.Context, items []news.Item) []news.Item {
	enriched := make([]news.Item, len(items))
	for i, item := range items {
		item.OriginalTitle = item.Title
		item.OriginalSummary = item.Summary
		item.Title = "X融资"
		item.Summary = "**X** 完成新一轮融资。"
		item.MarketReaction = "**股价**看涨。"
		item.Comments = []string{"a", "b", "c", "d", "e"}
		enriched[i] = item
	}
	return enriched
}

func TestRunEndToEnd(t *testing.T) {
	harvester := &fakeHarvester{items: []news.Item{{
		ID:          "1",
		Title:       "X raises funding",
		Summary:     "X announced a funding round",
		Category:    news.CategoryAI,
		URL:         "https://example.com/x",
		HeatIndex:   2000,
		PublishDate: fixedNow().Add(-2 * time.Hour),
	}}}
	topics := &fakeTopics{topics: []news.Topic{
		{ID: "funding", Name: "Funding", Keywords: []string{"funding"}, Priority: 50, Enabled: true},
	}}
	reports := newFakeReports()

	o := newTestOrchestrator(harvester, translatingEnricher{}, topics, reports)

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Items) != 1 {
		t.Fatalf("Expected exactly 1 item, got %d", len(report.Items))
	}
	item := report.Items[0]
	if item.Title != "X融资" {
		t.Errorf("Expected translated title, got %q", item.Title)
	}
	if item.OriginalTitle != "X raises funding" {
		t.Errorf("Expected original title stamped, got %q", item.OriginalTitle)
	}
	if item.HeatIndex != 3000 {
		t.Errorf("Expected heat index round(2000*1.5)=3000, got %d", item.HeatIndex)
	}
	if len(item.MatchedTopics) != 1 || item.MatchedTopics[0] != "funding" {
		t.Errorf("Expected matchedTopics [funding], got %v", item.MatchedTopics)
	}
	if reports.stored["2026-08-30"] == nil {
		t.Error("Expected report persisted")
	}
}

func TestRunAppliesTopicScoring(t *testing.T) {
	harvester := &fakeHarvester{items: []news.Item{
		{ID: "1", Title: "Startup raises funding round", Summary: "A funding round was announced", HeatIndex: 1000, URL: "https://example.com/1"},
	}}
	topics := &fakeTopics{topics: []news.Topic{
		{ID: "funding", Name: "Funding", Keywords: []string{"funding"}, Priority: 50, Enabled: true},
	}}

	o := newTestOrchestrator(harvester, &fakeEnricher{}, topics, newFakeReports())

	report, err := o.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	item := report.Items[0]
	if item.HeatIndex != 1500 {
		t.Errorf("Expected heat index 1500 after 1.5x boost, got %d", item.HeatIndex)
	}
	if len(item.MatchedTopics) != 1 || item.MatchedTopics[0] != "funding" {
		t.Errorf("Expected matched topic 'funding', got %v", item.MatchedTopics)
	}
}
