package events

import (
	"sync"

	"crowdgov/internal/domain"
)

const DefaultLogSize = 1024

// Log keeps the most recent events in a ring buffer for the read API
type Log struct {
	mu    sync.RWMutex
	buf   []domain.Event
	next  int
	count int
}

var _ Publisher = (*Log)(nil)

func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Log{buf: make([]domain.Event, size)}
}

func (l *Log) Publish(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// Filter selects events from the log. Zero values match everything.
type Filter struct {
	AfterSeq   uint64
	CampaignID uint64
	Type       domain.EventType
	Limit      int
}

func (f Filter) match(ev domain.Event) bool {
	if ev.Seq <= f.AfterSeq {
		return false
	}
	if f.CampaignID != 0 && ev.CampaignID != f.CampaignID {
		return false
	}
	if f.Type != "" && ev.Type != f.Type {
		return false
	}
	return true
}

// List returns matching events oldest first, at most f.Limit of them when set
func (l *Log) List(f Filter) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Event, 0)
	start := (l.next - l.count + len(l.buf)) % len(l.buf)
	for i := 0; i < l.count; i++ {
		ev := l.buf[(start+i)%len(l.buf)]
		if !f.match(ev) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Len is the number of retained events
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
