package enrich

import (
	"context"
	"sync"

	"chronicle/internal/checkpoint"
)

// Progress is the Progress State of a batch: the clips already finished and
// a way to record more. checkpoint.Run is the durable implementation.
type Progress interface {
	Completed() map[string]checkpoint.Record
	Append(ctx context.Context, rec checkpoint.Record) error
}

// MemoryProgress keeps records in memory only. It suits dry runs and tests.
type MemoryProgress struct {
	mu      sync.Mutex
	records map[string]checkpoint.Record
}

// NewMemoryProgress returns an empty in-memory Progress, optionally seeded.
func NewMemoryProgress(seed ...checkpoint.Record) *MemoryProgress {
	p := &MemoryProgress{records: make(map[string]checkpoint.Record, len(seed))}
	for _, rec := range seed {
		p.records[rec.ClipID] = rec
	}
	return p
}

// Completed returns a copy of the recorded clips.
func (p *MemoryProgress) Completed() map[string]checkpoint.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]checkpoint.Record, len(p.records))
	for id, rec := range p.records {
		out[id] = rec
	}
	return out
}

// Append stores rec, replacing an earlier record for the same clip.
func (p *MemoryProgress) Append(_ context.Context, rec checkpoint.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.ClipID] = rec
	return nil
}
