// Package procs tracks in-flight harvesting processes per user. The
// decision engine itself holds no shared mutable state; this table is
// owned by the orchestration layer and exposes only lookups and removal
// to everything else.
package procs

import (
	"sync"
	"time"
)

// Status of a tracked harvesting process.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusStopped   Status = "stopped"
)

// LogLine is one captured output line from a harvesting process.
type LogLine struct {
	Stream    string    `json:"type"` // "stdout" or "stderr"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Info describes one tracked process.
type Info struct {
	UserUID   string    `json:"userUid"`
	Mode      string    `json:"mode"`
	Status    Status    `json:"status"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitzero"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	Error     string    `json:"error,omitempty"`
	Logs      []LogLine `json:"logs,omitempty"`
}

// Table is a concurrency-safe process registry keyed by user uid.
type Table struct {
	mu    sync.RWMutex
	procs map[string]*Info
}

// NewTable creates an empty process table.
func NewTable() *Table {
	return &Table{procs: make(map[string]*Info)}
}

// Start registers a running process for the user, replacing any previous
// record.
func (t *Table) Start(userUID, mode string) *Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := &Info{
		UserUID:   userUID,
		Mode:      mode,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	t.procs[userUID] = info
	return info
}

// Finish marks the user's process as ended with the given status.
func (t *Table) Finish(userUID string, status Status, exitCode int, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.procs[userUID]
	if !ok {
		return
	}
	info.Status = status
	info.EndTime = time.Now()
	info.ExitCode = &exitCode
	info.Error = errText
}

// AppendLog records one output line for the user's process.
func (t *Table) AppendLog(userUID, stream, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.procs[userUID]
	if !ok {
		return
	}
	info.Logs = append(info.Logs, LogLine{
		Stream:    stream,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Get returns a copy of the user's process record.
func (t *Table) Get(userUID string) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.procs[userUID]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// List returns a copy of every tracked process.
func (t *Table) List() []Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Info, 0, len(t.procs))
	for _, info := range t.procs {
		out = append(out, *info)
	}
	return out
}

// Remove drops the user's process record, reporting whether one existed.
func (t *Table) Remove(userUID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.procs[userUID]
	delete(t.procs, userUID)
	return ok
}
