package domain

import "time"

// MonitorState is the current phase of the monitoring loop.
type MonitorState string

// Monitoring loop states.
const (
	MonitorIdle       MonitorState = "idle"
	MonitorPolling    MonitorState = "polling"
	MonitorProcessing MonitorState = "processing"
	MonitorStopped    MonitorState = "stopped"
)

// TickResult records the outcome of one monitoring tick.
type TickResult struct {
	// StartedAt is when the tick started.
	StartedAt time.Time

	// EndedAt is when the tick completed.
	EndedAt time.Time

	// Added is the number of Added events processed.
	Added int

	// Removed is the number of Removed events processed.
	Removed int

	// Failures is the number of documents whose processing failed.
	Failures int

	// Conflicts is the number of inconsistencies reported.
	Conflicts int
}

// EventOutcome records how a change event was handled.
type EventOutcome struct {
	// Event is the handled change.
	Event ChangeEvent

	// Success is false when processing failed.
	Success bool

	// Error contains the failure message if Success is false.
	Error string

	// Conflicts lists the opposite-collection keys reported as inconsistent.
	Conflicts []DocumentKey
}
