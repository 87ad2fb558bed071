package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an inference service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds inference provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CollectionSettings holds the watched directories.
type CollectionSettings struct {
	// GovernmentDir is the directory of government policy documents.
	GovernmentDir string

	// HospitalDir is the directory of hospital policy documents.
	HospitalDir string

	// Extension is the file extension filter (case-insensitive).
	Extension string
}

// Dir returns the directory for a collection.
func (c CollectionSettings) Dir(col Collection) string {
	if col == CollectionHospital {
		return c.HospitalDir
	}
	return c.GovernmentDir
}

// MonitorSettings holds monitoring loop configuration.
type MonitorSettings struct {
	// Interval is the poll interval.
	Interval time.Duration

	// ChunkSize is the number of pages per chunk.
	ChunkSize int

	// RetryFailed re-attempts documents whose summarisation failed on later ticks.
	RetryFailed bool

	// PruneRemoved deletes cache entries for removed documents.
	PruneRemoved bool
}

// QuerySettings holds query engine configuration.
type QuerySettings struct {
	// MatchDelay is the minimum spacing between relevance calls.
	MatchDelay time.Duration

	// RetryBackoff is the fixed wait between reference-scan retries.
	RetryBackoff time.Duration

	// MaxAttempts caps reference-scan attempts per chunk.
	MaxAttempts int

	// ChunkPause is the pause after each successful reference-scan chunk.
	ChunkPause time.Duration
}

// NotifySettings holds notification delivery configuration.
type NotifySettings struct {
	// SMTPHost is the mail server host. Empty disables email.
	SMTPHost string

	// SMTPPort is the mail server port.
	SMTPPort int

	// Sender is the sender address and SMTP username.
	Sender string

	// Password is the SMTP password.
	Password string

	// Recipients receive every notification.
	Recipients []string
}

// IsConfigured returns true if email delivery is possible.
func (n NotifySettings) IsConfigured() bool {
	return n.SMTPHost != "" && n.Sender != "" && len(n.Recipients) > 0
}

// ServerSettings holds the HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Collections CollectionSettings
	Monitor     MonitorSettings
	Query       QuerySettings
	LLM         LLMSettings
	Notify      NotifySettings
	Server      ServerSettings
}

// Default values.
const (
	DefaultChunkSize    = 20
	DefaultInterval     = 2 * time.Second
	DefaultMatchDelay   = 5 * time.Second
	DefaultRetryBackoff = 2 * time.Second
	DefaultMaxAttempts  = 5
	DefaultChunkPause   = 2 * time.Second
	DefaultExtension    = ".pdf"
	DefaultSMTPPort     = 587
)

// DefaultAppSettings returns settings with sensible defaults.
// The LLM is left unconfigured until an API key is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Collections: CollectionSettings{
			GovernmentDir: "policy_docs/gov",
			HospitalDir:   "policy_docs/hospital",
			Extension:     DefaultExtension,
		},
		Monitor: MonitorSettings{
			Interval:  DefaultInterval,
			ChunkSize: DefaultChunkSize,
		},
		Query: QuerySettings{
			MatchDelay:   DefaultMatchDelay,
			RetryBackoff: DefaultRetryBackoff,
			MaxAttempts:  DefaultMaxAttempts,
			ChunkPause:   DefaultChunkPause,
		},
		LLM: LLMSettings{
			Provider: AIProviderGemini,
			Model:    DefaultLLMModels()[AIProviderGemini],
		},
		Notify: NotifySettings{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: DefaultSMTPPort,
		},
		Server: ServerSettings{
			Addr: ":8000",
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "gemini-2.0-flash",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}
