package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// maxBuffered bounds the in-memory progress buffer; the oldest messages are
// dropped first. A UI that falls this far behind re-reads the persisted caches
// anyway, and the full stream remains queryable from the log database.
const maxBuffered = 4096

// ProgressHub is the worker-to-UI queue. The worker publishes typed progress
// messages; the UI polls with a sequence cursor. Every message is also
// archived as a worker log entry.
type ProgressHub struct {
	mu   sync.Mutex
	seq  int64
	buf  []model.Progress
	logs *repository.LogRepository
}

// NewProgressHub creates a hub archiving to the given log repository.
// A nil repository disables archiving (used in tests).
func NewProgressHub(logs *repository.LogRepository) *ProgressHub {
	return &ProgressHub{logs: logs}
}

// Publish assigns the next sequence number and buffers the message.
func (h *ProgressHub) Publish(p model.Progress) {
	h.mu.Lock()
	h.seq++
	p.Seq = h.seq
	if p.At.IsZero() {
		p.At = time.Now().UTC()
	}
	h.buf = append(h.buf, p)
	if len(h.buf) > maxBuffered {
		h.buf = h.buf[len(h.buf)-maxBuffered:]
	}
	h.mu.Unlock()

	h.archive(p)
}

// After returns all buffered messages with Seq > after, oldest first.
func (h *ProgressHub) After(after int64) []model.Progress {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []model.Progress{}
	for _, p := range h.buf {
		if p.Seq > after {
			out = append(out, p)
		}
	}
	return out
}

// LatestSeq returns the sequence number of the newest message.
func (h *ProgressHub) LatestSeq() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// archive persists the message as a log entry. Failures are swallowed: the
// log database must never take the worker down.
func (h *ProgressHub) archive(p model.Progress) {
	if h.logs == nil {
		return
	}
	level := model.LogInfo
	if p.Error != "" {
		level = model.LogError
	}
	category := p.Type
	if i := strings.Index(category, ":"); i > 0 {
		category = category[:i]
	}
	source := p.Symbol
	if source == "" {
		source = p.Path
	}

	entry := model.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: p.At,
		Level:     level,
		Category:  category,
		Source:    source,
		Message:   p.Type,
		Details:   progressDetails(p),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.logs.Insert(ctx, entry)
}

func progressDetails(p model.Progress) string {
	if p.Error != "" {
		return p.Error
	}
	switch {
	case p.Total > 0:
		return fmt.Sprintf("done=%d total=%d", p.Done, p.Total)
	case p.Added > 0:
		return fmt.Sprintf("added=%d", p.Added)
	case p.Updated > 0:
		return fmt.Sprintf("updated=%d", p.Updated)
	case p.Count > 0:
		return fmt.Sprintf("count=%d", p.Count)
	}
	return ""
}
