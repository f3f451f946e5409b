package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/liuhaoran/daybrief/app/news"
)

type topicsFile struct {
	Topics []news.Topic `json:"topics"`
}

// TopicStore manages topic definitions in a single JSON file.
type TopicStore struct {
	path string
	mu   sync.Mutex
}

func NewTopicStore(path string) *TopicStore {
	return &TopicStore{path: path}
}

// Load returns all topic definitions. A missing file yields an empty
// list.
func (s *TopicStore) Load() ([]news.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Enabled returns only the enabled topics, in definition order.
func (s *TopicStore) Enabled() ([]news.Topic, error) {
	topics, err := s.Load()
	if err != nil {
		return nil, err
	}

	enabled := make([]news.Topic, 0, len(topics))
	for _, t := range topics {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled, nil
}

func (s *TopicStore) load() ([]news.Topic, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}

	var file topicsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	return file.Topics, nil
}

func (s *TopicStore) save(topics []news.Topic) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(topicsFile{Topics: topics}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write topics: %w", err)
	}
	return nil
}

// Upsert inserts the topic or replaces the one sharing its id.
func (s *TopicStore) Upsert(topic news.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range topics {
		if existing.ID == topic.ID {
			topics[i] = topic
			replaced = true
			break
		}
	}
	if !replaced {
		topics = append(topics, topic)
	}

	return s.save(topics)
}

// Remove deletes the topic with the given id.
func (s *TopicStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load()
	if err != nil {
		return err
	}

	kept := topics[:0]
	for _, t := range topics {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(topics) {
		return fmt.Errorf("topic %s not found", id)
	}

	return s.save(kept)
}
