package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	saved       int
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	m.saved++
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockLLM answers every prompt with respond.
type mockLLM struct {
	mu      sync.Mutex
	respond func(prompt string) string
	prompts []string
	closed  bool
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.respond == nil {
		return "", nil
	}
	return m.respond(prompt), nil
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// testEnv points the command tree at temporary collections and a mock LLM.
type testEnv struct {
	settings *mockSettingsService
	llm      *mockLLM
	govDir   string
	hospDir  string
	out      *bytes.Buffer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	env := &testEnv{
		llm:     &mockLLM{},
		govDir:  filepath.Join(root, "gov"),
		hospDir: filepath.Join(root, "hospital"),
		out:     new(bytes.Buffer),
	}
	require.NoError(t, os.MkdirAll(env.govDir, 0o755))
	require.NoError(t, os.MkdirAll(env.hospDir, 0o755))

	settings := domain.DefaultAppSettings()
	settings.Collections.GovernmentDir = env.govDir
	settings.Collections.HospitalDir = env.hospDir
	settings.Monitor.Interval = 20 * time.Millisecond
	settings.Query = domain.QuerySettings{MaxAttempts: 2, RetryBackoff: time.Millisecond}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderGemini, Model: "gemini-test", APIKey: "key-1234567890"}
	env.settings = &mockSettingsService{settings: settings}

	oldSettings, oldConnect, oldValidate, oldOpen, oldConfigDir :=
		settingsService, connectLLM, validateLLM, openPages, configDir

	settingsService = env.settings
	configDir = filepath.Join(root, "config")
	connectLLM = func(context.Context, *domain.LLMSettings) (driven.LLMService, error) {
		return env.llm, nil
	}
	validateLLM = func(context.Context, *domain.LLMSettings) error { return nil }

	rootCmd.SetOut(env.out)
	rootCmd.SetErr(env.out)

	t.Cleanup(func() {
		settingsService, connectLLM, validateLLM, openPages, configDir =
			oldSettings, oldConnect, oldValidate, oldOpen, oldConfigDir
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		queryJSON = false
		summarizeOut = ""
		checkText = false
		historyLimit = 20
		historyTicks = false
		serveAddr = ""
		serveNoAPI = false
	})
	return env
}

// addSummarised places a document and its stored summary in a collection dir.
func addSummarised(t *testing.T, dir, key, summary string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".pdf"), []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "summary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary", key+"_summary.txt"), []byte(summary), 0o600))
}

func (e *testEnv) run(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
