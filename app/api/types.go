package api

import (
	"context"

	"github.com/liuhaoran/daybrief/app/aggregate"
	"github.com/liuhaoran/daybrief/app/database"
	"github.com/liuhaoran/daybrief/app/news"
	"github.com/liuhaoran/daybrief/app/progress"
)

type AggregatorInterface interface {
	Run(ctx context.Context, date string) (*news.Report, error)
}

var _ AggregatorInterface = (*aggregate.Orchestrator)(nil)

type ReportStoreInterface interface {
	Load(date string) (*news.Report, error)
	List() ([]string, error)
}

type SourceStoreInterface interface {
	Load() ([]news.Source, error)
	Add(source news.Source) error
	Remove(url string) error
}

type TopicStoreInterface interface {
	Load() ([]news.Topic, error)
	Upsert(topic news.Topic) error
	Remove(id string) error
}

type ProgressInterface interface {
	Snapshot() progress.Event
}

type Handler struct {
	aggregator AggregatorInterface
	reports    ReportStoreInterface
	sources    SourceStoreInterface
	topics     TopicStoreInterface
	tracker    ProgressInterface
	readRepo   *database.ReadStatusRepository
	fetchLog   *database.FetchLogRepository
}
