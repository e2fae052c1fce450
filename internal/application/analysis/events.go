package analysis

import (
	"sync"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// ProgressEvent is one emission of the pipeline: a stage starting or
// finishing, or a checklist chunk arriving. Chunk events use the synthetic
// analyze_checklist_chunk_<n> stage name and carry the chunk payload.
type ProgressEvent struct {
	AuditID   string               `json:"audit_id"`
	Page      audit.PageType       `json:"page"`
	Stage     audit.StageName      `json:"stage"`
	Completed bool                 `json:"completed"`
	Status    string               `json:"status,omitempty"`
	Data      audit.StageResult    `json:"data,omitempty"`
	Chunk     *audit.ChunkProgress `json:"chunk,omitempty"`
}

// Broadcaster fans progress events out to subscribers. Publishing never
// blocks: a subscriber that cannot keep up loses events rather than stalling
// the pipeline.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan ProgressEvent]struct{}
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan ProgressEvent]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (b *Broadcaster) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (b *Broadcaster) Publish(ev ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends the stream; subscribers see their channels closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
