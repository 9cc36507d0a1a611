package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	configs     map[string]model.ConfigRecord
	summaries   map[string]model.AssemblySummary
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.configs = make(map[string]model.ConfigRecord)
	s.summaries = make(map[string]model.AssemblySummary)
	s.order = nil
	return nil
}

func (s *MemoryStore) SaveConfig(_ context.Context, record model.ConfigRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	record.Config = record.Config.Clone()
	s.configs[record.Name] = record
	return nil
}

func (s *MemoryStore) GetConfig(_ context.Context, name string) (model.ConfigRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.ConfigRecord{}, false, errNotInitialized
	}
	record, ok := s.configs[name]
	if !ok {
		return model.ConfigRecord{}, false, nil
	}
	record.Config = record.Config.Clone()
	return record, true, nil
}

func (s *MemoryStore) ListConfigs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) SaveAssemblySummary(_ context.Context, summary model.AssemblySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if _, exists := s.summaries[summary.ID]; !exists {
		s.order = append(s.order, summary.ID)
	}
	s.summaries[summary.ID] = copySummary(summary)
	return nil
}

func (s *MemoryStore) GetAssemblySummary(_ context.Context, id string) (model.AssemblySummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.AssemblySummary{}, false, errNotInitialized
	}
	summary, ok := s.summaries[id]
	if !ok {
		return model.AssemblySummary{}, false, nil
	}
	return copySummary(summary), true, nil
}

func (s *MemoryStore) ListAssemblySummaries(_ context.Context) ([]model.AssemblySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	out := make([]model.AssemblySummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copySummary(s.summaries[id]))
	}
	return out, nil
}

func copySummary(summary model.AssemblySummary) model.AssemblySummary {
	summary.Regions = append([]model.RegionRecord(nil), summary.Regions...)
	summary.Links = append([]model.LinkRecord(nil), summary.Links...)
	summary.Config = summary.Config.Clone()
	return summary
}
