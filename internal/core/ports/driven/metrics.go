package driven

import (
	"time"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// Metrics receives operational measurements from the core services.
type Metrics interface {
	// ObserveTick records a completed monitoring tick.
	ObserveTick(result domain.TickResult)

	// ObserveEvent records a processed change event.
	ObserveEvent(collection domain.Collection, change domain.ChangeType, success bool)

	// ObserveInference records one inference call.
	ObserveInference(operation string, duration time.Duration, err error)

	// ObserveRetry records a reference-scan retry.
	ObserveRetry()

	// SetCacheSize records the number of cached summaries in a collection.
	SetCacheSize(collection domain.Collection, n int)
}
