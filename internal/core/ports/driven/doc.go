// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LLMService: the inference gateway (prompt in, generated text out)
//   - DocumentSource: lists and opens the documents of one collection
//   - SummaryStore: persists one summary artifact per document
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Notifier: notification delivery. Without it, notifications are only logged.
//   - EventStore: tick and event history. Without it, history is not recorded.
//   - Metrics: operational counters. Without it, nothing is exported.
//   - PromptStore: user-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
