package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStrategy struct {
	name   string
	parsed *Parsed
	err    error
	calls  int
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Fetch(ctx context.Context, url string) (*Parsed, error) {
	s.calls++
	return s.parsed, s.err
}

func feedWithEntries() *Parsed {
	return &Parsed{
		Title:   "Test",
		Entries: []Entry{{GUID: "1", Title: "Item", Link: "https://example.com/1"}},
	}
}

func TestRetrieveFirstStrategySucceeds(t *testing.T) {
	first := &fakeStrategy{name: TierDirect, parsed: feedWithEntries()}
	second := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, nil, first, second)

	parsed, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(parsed.Entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(parsed.Entries))
	}
	if first.calls != 1 {
		t.Errorf("Expected first strategy called once, got %d", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("Expected second strategy not called, got %d calls", second.calls)
	}
}

func TestRetrieveFallsThroughOnFailure(t *testing.T) {
	first := &fakeStrategy{name: TierDirect, err: errors.New("connection refused")}
	second := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, nil, first, second)

	parsed, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if parsed == nil || len(parsed.Entries) != 1 {
		t.Fatal("Expected feed from second strategy")
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("Expected each strategy called once, got %d and %d", first.calls, second.calls)
	}
}

func TestRetrieveFullCascadeToBrowser(t *testing.T) {
	direct := &fakeStrategy{name: TierDirect, err: errors.New("parse error")}
	raw := &fakeStrategy{name: TierHTTP, err: errors.New("HTTP error: 403 Forbidden")}
	browser := &fakeStrategy{name: TierBrowser, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, raw, direct, raw, browser)

	parsed, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(parsed.Entries) != 1 {
		t.Error("Expected feed from the browser tier")
	}
	if direct.calls != 1 {
		t.Errorf("Expected direct tier attempted exactly once, got %d", direct.calls)
	}
	if raw.calls != 1 {
		t.Errorf("Expected http tier attempted exactly once, got %d", raw.calls)
	}
	if browser.calls != 1 {
		t.Errorf("Expected browser tier attempted exactly once, got %d", browser.calls)
	}
}

func TestRetrieveEmptyFeedTreatedAsFailure(t *testing.T) {
	first := &fakeStrategy{name: TierDirect, parsed: &Parsed{Title: "Empty"}}
	second := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, nil, first, second)

	parsed, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(parsed.Entries) != 1 {
		t.Error("Expected fallthrough past the empty feed")
	}
}

func TestRetrieveAllStrategiesFail(t *testing.T) {
	first := &fakeStrategy{name: TierDirect, err: errors.New("boom")}
	second := &fakeStrategy{name: TierHTTP, err: errors.New("bang")}

	retriever := NewRetrieverWithStrategies(nil, nil, first, second)

	_, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err == nil {
		t.Fatal("Expected error when all strategies fail")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T", err)
	}
	if len(fetchErr.Attempts) != 2 {
		t.Errorf("Expected 2 recorded attempts, got %d", len(fetchErr.Attempts))
	}
	if fetchErr.LastErr.Error() != "bang" {
		t.Errorf("Expected last error 'bang', got %v", fetchErr.LastErr)
	}
}

func TestRetrieveBlockedByClientRetry(t *testing.T) {
	browser := &fakeStrategy{name: TierBrowser, err: errors.New("page load error net::ERR_BLOCKED_BY_CLIENT")}
	retry := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, retry, browser)

	parsed, err := retriever.Retrieve(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(parsed.Entries) != 1 {
		t.Error("Expected feed from the blocked-client retry")
	}
	if retry.calls != 1 {
		t.Errorf("Expected retry strategy called once, got %d", retry.calls)
	}
}

func TestRetrieveNoRetryForOtherBrowserErrors(t *testing.T) {
	browser := &fakeStrategy{name: TierBrowser, err: errors.New("navigation timeout")}
	retry := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	retriever := NewRetrieverWithStrategies(nil, retry, browser)

	if _, err := retriever.Retrieve(context.Background(), "https://example.com/feed"); err == nil {
		t.Fatal("Expected error")
	}
	if retry.calls != 0 {
		t.Errorf("Expected no retry for non-blocked error, got %d calls", retry.calls)
	}
}

func TestRetrieveRecordsAttempts(t *testing.T) {
	first := &fakeStrategy{name: TierDirect, err: errors.New("boom")}
	second := &fakeStrategy{name: TierHTTP, parsed: feedWithEntries()}

	var recorded []Attempt
	recorder := func(url string, attempt Attempt) {
		recorded = append(recorded, attempt)
	}

	retriever := NewRetrieverWithStrategies(recorder, nil, first, second)

	if _, err := retriever.Retrieve(context.Background(), "https://example.com/feed"); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(recorded) != 2 {
		t.Fatalf("Expected 2 recorded attempts, got %d", len(recorded))
	}
	if recorded[0].Tier != TierDirect || recorded[0].Err == nil {
		t.Errorf("Expected failed direct attempt first, got %+v", recorded[0])
	}
	if recorded[1].Tier != TierHTTP || recorded[1].Err != nil {
		t.Errorf("Expected successful http attempt second, got %+v", recorded[1])
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", timeoutError{}, true},
		{"wrapped net timeout", fmt.Errorf("fetch feed: %w", timeoutError{}), true},
		{"connection reset", errors.New("read tcp 10.0.0.1:443: connection reset by peer"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"http status", errors.New("http error: 404 Not Found"), false},
		{"malformed document", errors.New("Failed to detect feed type"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDirectStrategyPermanentErrorSingleAttempt(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := &directStrategy{
		userAgent:  "test-agent",
		client:     &http.Client{Timeout: time.Second},
		retryDelay: time.Millisecond,
	}

	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected a single request for a permanent failure, got %d", got)
	}
}

func TestDirectStrategyRetriesTransientFailures(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	// Client timeout well below the handler delay makes every attempt a
	// transient timeout failure.
	s := &directStrategy{
		userAgent:  "test-agent",
		client:     &http.Client{Timeout: 50 * time.Millisecond},
		retryDelay: time.Millisecond,
	}

	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error when every attempt times out")
	}
	if got := requests.Load(); got != directAttempts {
		t.Errorf("Expected %d attempts for a transient failure, got %d", directAttempts, got)
	}
}

func TestRawHTTPStrategyFetch(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	s := &rawHTTPStrategy{parser: NewParser(), userAgent: "Mozilla/5.0 (test)", client: server.Client()}

	parsed, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(parsed.Entries) == 0 {
		t.Fatal("Expected entries from the parsed feed")
	}
	if gotUA != "Mozilla/5.0 (test)" {
		t.Errorf("Expected browser user agent sent, got %q", gotUA)
	}
	if gotAccept != feedAcceptHeader {
		t.Errorf("Expected feed accept header, got %q", gotAccept)
	}
}

func TestRawHTTPStrategyNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := &rawHTTPStrategy{parser: NewParser(), userAgent: "test-agent", client: server.Client()}

	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 403 response")
	}
}

func TestIsBlockedByClient(t *testing.T) {
	if !IsBlockedByClient(errors.New("net::ERR_BLOCKED_BY_CLIENT at https://x")) {
		t.Error("Expected blocked-by-client error to be detected")
	}
	if IsBlockedByClient(errors.New("timeout")) {
		t.Error("Expected unrelated error not to be detected")
	}
	if IsBlockedByClient(nil) {
		t.Error("Expected nil error not to be detected")
	}
}
