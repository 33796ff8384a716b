package capture

import (
	"sync"
	"time"

	"gate-access-service/internal/domain/access"
)

type Status struct {
	Message    string         `json:"message"`
	Outcome    access.Outcome `json:"outcome,omitempty"`
	Plate      string         `json:"plate,omitempty"`
	Sanctioned bool           `json:"sanctioned"`
	SetAt      time.Time      `json:"set_at"`
	Until      time.Time      `json:"until"`
}

// StatusBoard holds the operator message. A message stays visible until its
// deadline regardless of how many ticks pass without a new decision.
type StatusBoard struct {
	mu     sync.RWMutex
	ttl    time.Duration
	status Status
}

func NewStatusBoard(ttl time.Duration) *StatusBoard {
	return &StatusBoard{ttl: ttl}
}

func (b *StatusBoard) SetDecision(d access.Decision, now time.Time) {
	until := d.DisplayUntil
	if until.IsZero() {
		until = now.Add(b.ttl)
	}
	b.mu.Lock()
	b.status = Status{
		Message:    d.Message,
		Outcome:    d.Outcome,
		Plate:      d.Plate,
		Sanctioned: d.Sanctioned,
		SetAt:      now,
		Until:      until,
	}
	b.mu.Unlock()
}

func (b *StatusBoard) SetMessage(msg string, now time.Time) {
	b.mu.Lock()
	b.status = Status{Message: msg, SetAt: now, Until: now.Add(b.ttl)}
	b.mu.Unlock()
}

// SetMessageIfIdle does not replace a message that is still visible.
func (b *StatusBoard) SetMessageIfIdle(msg string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.status.Until) {
		return false
	}
	b.status = Status{Message: msg, SetAt: now, Until: now.Add(b.ttl)}
	return true
}

func (b *StatusBoard) Current(now time.Time) (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.status.Message == "" || !now.Before(b.status.Until) {
		return Status{}, false
	}
	return b.status, true
}
