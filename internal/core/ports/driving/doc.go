// Package driving defines the interfaces that external actors use to drive the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Adapters (CLI, HTTP API, MCP server) call these interfaces, and core
// services implement them.
//
// # Interfaces
//
//   - MonitorService: runs the collection monitoring loop
//   - QueryService: answers queries against the cached summaries and documents
//   - SummaryService: uploads documents and serves persisted summaries
//   - SettingsService: reads and writes application settings
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, services package
package driving
