package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyGovernmentDir = "collections.government.dir"
	keyHospitalDir   = "collections.hospital.dir"
	keyExtension     = "collections.extension"
	keyInterval      = "monitor.interval"
	keyChunkSize     = "monitor.chunk_size"
	keyRetryFailed   = "monitor.retry_failed"
	keyPruneRemoved  = "monitor.prune_removed"
	keyMatchDelay    = "query.match_delay"
	keyRetryBackoff  = "query.retry_backoff"
	keyMaxAttempts   = "query.max_attempts"
	keyChunkPause    = "query.chunk_pause"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
	keySMTPHost      = "notify.smtp_host"
	keySMTPPort      = "notify.smtp_port"
	keySender        = "notify.sender"
	keyPassword      = "notify.password"
	keyRecipients    = "notify.recipients"
	keyServerAddr    = "server.addr"
)

// Environment variables that override stored secrets.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvSenderEmail     = "SENDER_EMAIL"
	EnvSenderPassword  = "SENDER_PASSWORD"
)

type configValue struct {
	key   string
	value any
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Missing keys take defaults
// and environment variables override stored secrets.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Collections: domain.CollectionSettings{
			GovernmentDir: s.getString(keyGovernmentDir, defaults.Collections.GovernmentDir),
			HospitalDir:   s.getString(keyHospitalDir, defaults.Collections.HospitalDir),
			Extension:     s.getString(keyExtension, defaults.Collections.Extension),
		},
		Monitor: domain.MonitorSettings{
			Interval:     s.getDuration(keyInterval, defaults.Monitor.Interval),
			ChunkSize:    s.getInt(keyChunkSize, defaults.Monitor.ChunkSize),
			RetryFailed:  s.getBool(keyRetryFailed, defaults.Monitor.RetryFailed),
			PruneRemoved: s.getBool(keyPruneRemoved, defaults.Monitor.PruneRemoved),
		},
		Query: domain.QuerySettings{
			MatchDelay:   s.getDuration(keyMatchDelay, defaults.Query.MatchDelay),
			RetryBackoff: s.getDuration(keyRetryBackoff, defaults.Query.RetryBackoff),
			MaxAttempts:  s.getInt(keyMaxAttempts, defaults.Query.MaxAttempts),
			ChunkPause:   s.getDuration(keyChunkPause, defaults.Query.ChunkPause),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(defaults.LLM.Provider),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Notify: domain.NotifySettings{
			SMTPHost:   s.getString(keySMTPHost, defaults.Notify.SMTPHost),
			SMTPPort:   s.getInt(keySMTPPort, defaults.Notify.SMTPPort),
			Sender:     s.configStore.GetString(keySender),
			Password:   s.configStore.GetString(keyPassword),
			Recipients: s.configStore.GetStringSlice(keyRecipients),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	s.applyEnv(settings)

	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	envKey := map[domain.AIProvider]string{
		domain.AIProviderGemini:    EnvGeminiAPIKey,
		domain.AIProviderOpenAI:    EnvOpenAIAPIKey,
		domain.AIProviderAnthropic: EnvAnthropicAPIKey,
	}[settings.LLM.Provider]
	if envKey != "" {
		if v := s.getenv(envKey); v != "" {
			settings.LLM.APIKey = v
		}
	}
	if v := s.getenv(EnvSenderEmail); v != "" {
		settings.Notify.Sender = v
	}
	if v := s.getenv(EnvSenderPassword); v != "" {
		settings.Notify.Password = v
	}
}

// Save persists application settings. Secrets are written only when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []configValue{
		{keyGovernmentDir, settings.Collections.GovernmentDir},
		{keyHospitalDir, settings.Collections.HospitalDir},
		{keyExtension, settings.Collections.Extension},
		{keyInterval, settings.Monitor.Interval.String()},
		{keyChunkSize, settings.Monitor.ChunkSize},
		{keyRetryFailed, settings.Monitor.RetryFailed},
		{keyPruneRemoved, settings.Monitor.PruneRemoved},
		{keyMatchDelay, settings.Query.MatchDelay.String()},
		{keyRetryBackoff, settings.Query.RetryBackoff.String()},
		{keyMaxAttempts, settings.Query.MaxAttempts},
		{keyChunkPause, settings.Query.ChunkPause.String()},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keySMTPHost, settings.Notify.SMTPHost},
		{keySMTPPort, settings.Notify.SMTPPort},
		{keySender, settings.Notify.Sender},
		{keyRecipients, settings.Notify.Recipients},
		{keyServerAddr, settings.Server.Addr},
	}
	if settings.LLM.APIKey != "" {
		values = append(values, configValue{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Notify.Password != "" {
		values = append(values, configValue{keyPassword, settings.Notify.Password})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return s.configStore.Save()
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the settings can drive the monitor.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var problems []string
	if settings.Collections.GovernmentDir == "" || settings.Collections.HospitalDir == "" {
		problems = append(problems, "both collection directories must be set")
	}
	if settings.Collections.GovernmentDir == settings.Collections.HospitalDir {
		problems = append(problems, "collection directories must differ")
	}
	if settings.Monitor.ChunkSize <= 0 {
		problems = append(problems, "monitor.chunk_size must be positive")
	}
	if settings.Monitor.Interval <= 0 {
		problems = append(problems, "monitor.interval must be positive")
	}
	if !settings.LLM.IsConfigured() {
		problems = append(problems, fmt.Sprintf("LLM provider %q is not configured", settings.LLM.Provider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetDuration(key)
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyLLMProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
