package driven

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// EventStore records monitoring history for inspection.
// It is not read back by the monitoring loop.
type EventStore interface {
	// RecordEvent logs how a change event was handled.
	RecordEvent(ctx context.Context, outcome *domain.EventOutcome) error

	// RecordTick logs a tick result.
	RecordTick(ctx context.Context, result *domain.TickResult) error

	// RecentEvents returns the most recent event outcomes, newest first.
	RecentEvents(ctx context.Context, limit int) ([]domain.EventOutcome, error)

	// RecentTicks returns the most recent tick results, newest first.
	RecentTicks(ctx context.Context, limit int) ([]domain.TickResult, error)

	// PruneHistory keeps only the most recent 'keep' ticks and events.
	PruneHistory(ctx context.Context, keep int) error
}
