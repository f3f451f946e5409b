// Package aggregate orchestrates one full pipeline run: harvest feeds,
// drop duplicates against the persisted report, enrich the new items,
// score topics and persist the merged daily report.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/liuhaoran/daybrief/app/dedup"
	"github.com/liuhaoran/daybrief/app/news"
	"github.com/liuhaoran/daybrief/app/progress"
	"github.com/liuhaoran/daybrief/app/topic"
)

// ErrAlreadyRunning is returned when a run is requested while another
// run is still in flight.
var ErrAlreadyRunning = errors.New("aggregation already running")

type Harvester interface {
	Run(ctx context.Context, sources []news.Source, asOf time.Time) []news.Item
}

type Enricher interface {
	Run(ctx context.Context, items []news.Item) []news.Item
}

type SourceLister interface {
	Load() ([]news.Source, error)
}

type TopicLister interface {
	Enabled() ([]news.Topic, error)
}

type ReportStore interface {
	Load(date string) (*news.Report, error)
	Save(report *news.Report) error
}

// Orchestrator drives the pipeline. At most one run executes at a
// time; concurrent triggers get ErrAlreadyRunning.
type Orchestrator struct {
	harvester Harvester
	enricher  Enricher
	sources   SourceLister
	topics    TopicLister
	reports   ReportStore
	sink      progress.Sink
	location  *time.Location
	now       func() time.Time

	running atomic.Bool
}

func New(harvester Harvester, enricher Enricher, sources SourceLister, topics TopicLister, reports ReportStore, sink progress.Sink, location *time.Location) *Orchestrator {
	if sink == nil {
		sink = progress.Nop
	}
	if location == nil {
		location = time.Local
	}
	return &Orchestrator{
		harvester: harvester,
		enricher:  enricher,
		sources:   sources,
		topics:    topics,
		reports:   reports,
		sink:      sink,
		location:  location,
		now:       time.Now,
	}
}

// Run executes the pipeline for the given date ("2006-01-02", empty
// means today) and returns the persisted report.
func (o *Orchestrator) Run(ctx context.Context, date string) (*news.Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	date, asOf, err := o.resolveDate(date)
	if err != nil {
		return nil, err
	}

	started := o.now()
	slog.Info("Aggregation started", "date", date)

	srcs, err := o.sources.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	o.publish(progress.StatusFetching, 0, 0, "正在获取新闻源...")
	harvested := o.harvester.Run(ctx, srcs, asOf)

	// The persisted report is the dedup baseline. A read failure only
	// loses the baseline, so it degrades to an empty report rather
	// than aborting the run.
	existing, err := o.reports.Load(date)
	if err != nil {
		slog.Warn("Failed to load existing report, treating as empty", "date", date, "error", err)
		existing = nil
	}

	var existingItems []news.Item
	if existing != nil {
		existingItems = existing.Items
	}

	fresh := dedup.FilterNew(harvested, existingItems)
	slog.Info("Deduplication complete", "harvested", len(harvested), "existing", len(existingItems), "new", len(fresh))

	if len(fresh) > 0 {
		enriched := o.enricher.Run(ctx, fresh)

		topics, err := o.topics.Enabled()
		if err != nil {
			slog.Warn("Failed to load topics, skipping topic scoring", "error", err)
			topics = nil
		}
		fresh = topic.Score(enriched, topics)
	}

	o.publish(progress.StatusSaving, 0, 0, "正在保存报告...")

	report := &news.Report{
		ID:        date,
		Date:      date,
		Title:     fmt.Sprintf("%s AI和科技新闻整理", date),
		Items:     append(existingItems, fresh...),
		CreatedAt: o.now(),
	}
	if existing != nil {
		report.Shorts = existing.Shorts
	}

	if err := o.reports.Save(report); err != nil {
		o.publish(progress.StatusIdle, 0, 0, fmt.Sprintf("保存报告失败: %v", err))
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	o.publish(progress.StatusComplete, len(report.Items), len(report.Items), fmt.Sprintf("聚合完成，共 %d 条新闻", len(report.Items)))
	slog.Info("Aggregation complete", "date", date, "items", len(report.Items), "new", len(fresh), "elapsed", o.now().Sub(started))

	return report, nil
}

// resolveDate normalizes the requested date and derives the harvest
// cutoff: now for today, end of day for an explicit past date.
func (o *Orchestrator) resolveDate(date string) (string, time.Time, error) {
	now := o.now().In(o.location)

	if date == "" {
		return now.Format("2006-01-02"), now, nil
	}

	parsed, err := time.ParseInLocation("2006-01-02", date, o.location)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	asOf := parsed.Add(24*time.Hour - time.Second)
	if asOf.After(now) {
		asOf = now
	}
	return date, asOf, nil
}

func (o *Orchestrator) publish(status progress.Status, current, total int, message string) {
	o.sink.Publish(progress.Event{
		Status:  status,
		Current: current,
		Total:   total,
		Message: message,
	})
}
