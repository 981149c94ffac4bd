package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sells-group/voice-agent/internal/model"
)

// MemoryStore keeps calls in process memory. Returned records are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	calls map[string]*model.CallRecord
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{calls: make(map[string]*model.CallRecord), now: time.Now}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// getOrCreate must be called with mu held for writing.
func (s *MemoryStore) getOrCreate(callID string) *model.CallRecord {
	if call, ok := s.calls[callID]; ok {
		return call
	}
	call := &model.CallRecord{
		ID:                       callID,
		StartedAt:                s.now().UTC(),
		Transcript:               []model.TranscriptTurn{},
		VoiceResponseLatenciesMS: []int{},
	}
	s.calls[callID] = call
	return call
}

func (s *MemoryStore) GetOrCreateCall(_ context.Context, callID string) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.getOrCreate(callID)), nil
}

func (s *MemoryStore) AddTurn(_ context.Context, callID string, turn model.TranscriptTurn) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.getOrCreate(callID)
	call.Transcript = append(call.Transcript, turn)
	return cloneRecord(call), nil
}

func (s *MemoryStore) CompleteCall(_ context.Context, callID string, rec model.CompletionRecord) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.getOrCreate(callID)
	call.ApplyCompletion(rec)
	return cloneRecord(call), nil
}

func (s *MemoryStore) AddVoiceLatency(_ context.Context, callID string, latencyMS int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.getOrCreate(callID)
	call.VoiceResponseLatenciesMS = append(call.VoiceResponseLatenciesMS, clampLatency(latencyMS))
	return nil
}

func (s *MemoryStore) GetCall(_ context.Context, callID string) (*model.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	call, ok := s.calls[callID]
	if !ok {
		return nil, nil
	}
	return cloneRecord(call), nil
}

func (s *MemoryStore) ListCalls(_ context.Context, limit int) ([]model.CallRecord, error) {
	all := s.snapshot()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return truncate(all, ClampLimit(limit)), nil
}

func (s *MemoryStore) ListBookedCalls(_ context.Context, limit int) ([]model.CallRecord, error) {
	var booked []model.CallRecord
	for _, call := range s.snapshot() {
		if call.Booking != nil && call.Booking.Booked {
			booked = append(booked, call)
		}
	}
	sort.SliceStable(booked, func(i, j int) bool {
		return completedAt(booked[i]).After(completedAt(booked[j]))
	})
	return truncate(booked, ClampLimit(limit)), nil
}

func (s *MemoryStore) KPIs(context.Context) (model.KPISnapshot, error) {
	return CalculateKPIs(s.snapshot()), nil
}

// snapshot returns copies of all calls in id order.
func (s *MemoryStore) snapshot() []model.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CallRecord, 0, len(s.calls))
	for _, call := range s.calls {
		out = append(out, *cloneRecord(call))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func completedAt(c model.CallRecord) time.Time {
	if c.CompletedAt == nil {
		return time.Time{}
	}
	return *c.CompletedAt
}

func truncate(calls []model.CallRecord, limit int) []model.CallRecord {
	if len(calls) > limit {
		return calls[:limit]
	}
	if calls == nil {
		return []model.CallRecord{}
	}
	return calls
}

func cloneRecord(c *model.CallRecord) *model.CallRecord {
	out := *c
	out.Transcript = append([]model.TranscriptTurn{}, c.Transcript...)
	out.VoiceResponseLatenciesMS = append([]int{}, c.VoiceResponseLatenciesMS...)
	if c.Summary != nil {
		summary := *c.Summary
		summary.NextSteps = append([]string(nil), c.Summary.NextSteps...)
		out.Summary = &summary
	}
	return &out
}
