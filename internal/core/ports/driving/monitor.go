package driving

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// MonitorService watches both collections and reacts to membership changes.
type MonitorService interface {
	// Start runs the monitoring loop until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop halts the loop and waits for the in-flight tick to finish.
	Stop() error

	// RunOnce performs a single poll over both collections.
	RunOnce(ctx context.Context) (*domain.TickResult, error)

	// State returns the current loop state.
	State() domain.MonitorState

	// History returns recent event outcomes, newest first.
	History(ctx context.Context, limit int) ([]domain.EventOutcome, error)
}
