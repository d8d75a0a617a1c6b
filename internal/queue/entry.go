// Package queue implements the asynchronous document classification
// queue: admission control, the priority dispatch scheduler, and the
// periodic driver that invokes it.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// State is a queue entry's lifecycle position. done and cancelled are
// terminal; failed is terminal only once attempts have reached the
// entry's maximum, otherwise the scheduler re-arms it to pending.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// States lists every lifecycle state in dispatch order.
var States = []State{
	StatePending,
	StateProcessing,
	StateDone,
	StateFailed,
	StateCancelled,
}

// transitions is the allowed state machine. Operator retry (failed to
// pending) and automatic re-arm share the same edge.
var transitions = map[State][]State{
	StatePending:    {StateProcessing, StateCancelled},
	StateProcessing: {StateDone, StateFailed, StatePending},
	StateFailed:     {StatePending, StateCancelled},
}

// CanTransition reports whether the state machine permits from -> to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automatic transitions occur.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Priority orders dispatch; higher values preempt lower ones.
type Priority int16

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

var priorityNames = map[string]Priority{
	"low":    PriorityLow,
	"normal": PriorityNormal,
	"high":   PriorityHigh,
	"urgent": PriorityUrgent,
}

// ParsePriority reads a priority name, defaulting to normal for empty
// input.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	if p, ok := priorityNames[s]; ok {
		return p, nil
	}
	return PriorityNormal, ErrInvalidPriority
}

// String returns the priority's name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// Entry is one unit of classification work. Name is an operator-facing
// sequence identifier with no scheduling semantics.
type Entry struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	DocumentID    uuid.UUID  `json:"document_id"`
	ServiceID     uuid.UUID  `json:"service_id"`
	State         State      `json:"state"`
	Priority      Priority   `json:"priority"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	ResultMessage *string    `json:"result_message"`
	ErrorMessage  *string    `json:"error_message"`
	LogID         *uuid.UUID `json:"log_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// DocumentName is joined for display on read paths; mutations
	// return entries without it.
	DocumentName *string `json:"document_name,omitempty"`
}

// EnqueueCommand requests admission of one or more documents. A nil
// ServiceID selects the default active service.
type EnqueueCommand struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
	ServiceID   *uuid.UUID  `json:"service_id"`
	Priority    string      `json:"priority"`
	MaxAttempts *int        `json:"max_attempts"`
}
