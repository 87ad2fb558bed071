// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The monitoring pipeline is Differ → Monitor → Summarizer → SummaryCache →
// ConsistencyChecker → Notifier. QueryService reads the SummaryCache and
// re-reads raw documents on demand.
package services
