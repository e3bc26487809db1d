package ledger

import (
	"sync"
	"time"
)

// Mirror operations reported to observers
const (
	OpTip         = "tip"
	OpAppendBlock = "append_block"
	OpAppendVote  = "append_vote"
	OpChain       = "chain"
)

// MirrorHealth is a snapshot of how the mirror store has been behaving.
type MirrorHealth struct {
	Configured  bool       `json:"configured"`
	Backend     string     `json:"backend,omitempty"`
	Healthy     bool       `json:"healthy"`
	LastError   string     `json:"last_error,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
	Failures    uint64     `json:"failures"`
}

// MirrorObserver is told about the outcome of every mirror operation.
type MirrorObserver interface {
	ObserveMirror(op string, err error)
}

type healthTracker struct {
	mu     sync.RWMutex
	health MirrorHealth
}

func (h *healthTracker) record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if err == nil {
		h.health.Healthy = true
		h.health.LastSuccess = &now
		return
	}
	h.health.Healthy = false
	h.health.LastError = err.Error()
	h.health.LastFailure = &now
	h.health.Failures++
}

func (h *healthTracker) snapshot() MirrorHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}
