package progress

import (
	"sync"
	"testing"
)

func TestTrackerInitialStateIsIdle(t *testing.T) {
	tracker := NewTracker()

	snapshot := tracker.Snapshot()
	if snapshot.Status != StatusIdle {
		t.Errorf("Expected idle status, got %q", snapshot.Status)
	}
}

func TestTrackerKeepsLatestEvent(t *testing.T) {
	tracker := NewTracker()

	tracker.Publish(Event{Status: StatusFetching})
	tracker.Publish(Event{Status: StatusTranslating, Current: 3, Total: 9, Message: "正在处理第 3/9 条新闻..."})

	snapshot := tracker.Snapshot()
	if snapshot.Status != StatusTranslating {
		t.Errorf("Expected translating status, got %q", snapshot.Status)
	}
	if snapshot.Current != 3 || snapshot.Total != 9 {
		t.Errorf("Expected 3/9, got %d/%d", snapshot.Current, snapshot.Total)
	}
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracker.Publish(Event{Status: StatusTranslating, Current: n, Total: 10})
			tracker.Snapshot()
		}(i)
	}
	wg.Wait()

	if tracker.Snapshot().Status != StatusTranslating {
		t.Error("Expected last published status to survive")
	}
}

func TestSinkFunc(t *testing.T) {
	var got Event
	sink := SinkFunc(func(e Event) { got = e })

	sink.Publish(Event{Status: StatusComplete, Message: "done"})
	if got.Status != StatusComplete || got.Message != "done" {
		t.Errorf("Expected event delivered to func, got %+v", got)
	}
}
