package tasks

import (
	"sync"
	"time"
)

type CycleSummary struct {
	NewFixes      int `json:"new_fixes"`
	NewPosts      int `json:"new_posts"`
	Photos        int `json:"photos"`
	DroppedPhotos int `json:"dropped_photos"`
	TextsSent     int `json:"texts_sent"`
}

type ReconcileSummary struct {
	Checked     int `json:"checked"`
	Unchanged   int `json:"unchanged"`
	Missing     int `json:"missing"`
	Republished int `json:"republished"`
}

type IngestRun struct {
	FinishedAt time.Time
	Duration   time.Duration
	Error      string
	Summary    CycleSummary
}

type ReconcileRun struct {
	FinishedAt time.Time
	Duration   time.Duration
	Error      string
	Summary    ReconcileSummary
}

// Status keeps the outcome of the most recent cycles for the API.
type Status struct {
	mu        sync.RWMutex
	ingest    *IngestRun
	reconcile *ReconcileRun
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) recordIngest(summary CycleSummary, duration time.Duration, err error) {
	if s == nil {
		return
	}
	run := IngestRun{FinishedAt: time.Now(), Duration: duration, Summary: summary}
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.ingest = &run
	s.mu.Unlock()
}

func (s *Status) recordReconcile(summary ReconcileSummary, duration time.Duration, err error) {
	if s == nil {
		return
	}
	run := ReconcileRun{FinishedAt: time.Now(), Duration: duration, Summary: summary}
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.reconcile = &run
	s.mu.Unlock()
}

func (s *Status) LastIngest() (IngestRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ingest == nil {
		return IngestRun{}, false
	}
	return *s.ingest, true
}

func (s *Status) LastReconcile() (ReconcileRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reconcile == nil {
		return ReconcileRun{}, false
	}
	return *s.reconcile, true
}
