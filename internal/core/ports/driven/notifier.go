package driven

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// Notifier delivers notifications. Delivery is best-effort: callers log
// failures and carry on.
type Notifier interface {
	// Notify sends a notification to its recipients.
	Notify(ctx context.Context, n domain.Notification) error
}
