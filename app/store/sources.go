package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/liuhaoran/daybrief/app/news"
)

// SourceStore manages the configured news sources in a single JSON
// file, matching the CRUD surface exposed over the API.
type SourceStore struct {
	path string
	mu   sync.Mutex
}

func NewSourceStore(path string) *SourceStore {
	return &SourceStore{path: path}
}

// Load returns all configured sources. A missing file yields an empty
// list.
func (s *SourceStore) Load() ([]news.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SourceStore) load() ([]news.Source, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}

	var sources []news.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	return sources, nil
}

func (s *SourceStore) save(sources []news.Source) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sources: %w", err)
	}
	return nil
}

// Add appends a source unless one with the same URL already exists.
func (s *SourceStore) Add(source news.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources, err := s.load()
	if err != nil {
		return err
	}

	for _, existing := range sources {
		if existing.URL == source.URL {
			return fmt.Errorf("source with URL %s already exists", source.URL)
		}
	}

	return s.save(append(sources, source))
}

// Remove deletes the source with the given URL.
func (s *SourceStore) Remove(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources, err := s.load()
	if err != nil {
		return err
	}

	kept := sources[:0]
	for _, source := range sources {
		if source.URL != url {
			kept = append(kept, source)
		}
	}
	if len(kept) == len(sources) {
		return fmt.Errorf("source with URL %s not found", url)
	}

	return s.save(kept)
}

type sourcesSeed struct {
	Sources []news.Source `yaml:"sources"`
}

// SeedFromYAML populates an empty store from a YAML seed file. A
// non-empty store or a missing seed file is left untouched.
func (s *SourceStore) SeedFromYAML(seedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	data, err := os.ReadFile(seedPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sources seed: %w", err)
	}

	var seed sourcesSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse sources seed: %w", err)
	}
	if len(seed.Sources) == 0 {
		return nil
	}

	return s.save(seed.Sources)
}
