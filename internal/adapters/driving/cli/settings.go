package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/policywatch/internal/adapters/driven/ai"
	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// validateLLM pings the configured provider. Replaced in tests.
var validateLLM = ai.ValidateLLMConfig

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the watched collections, the AI provider and
email notifications.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for summaries, consistency checks and queries.`,
	RunE:  runSettingsLLM,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings and check the LLM provider is reachable",
	RunE:  runSettingsValidate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := ensureSettingsService()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := cmd.OutOrStdout()
	cmd.Println(styled(out, headingStyle, "Current Settings"))
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Collections]")
	cmd.Printf("  Government: %s\n", settings.Collections.GovernmentDir)
	cmd.Printf("  Hospital: %s\n", settings.Collections.HospitalDir)
	cmd.Printf("  Extension: %s\n", settings.Collections.Extension)
	cmd.Println()

	cmd.Println("[Monitor]")
	cmd.Printf("  Interval: %s\n", settings.Monitor.Interval)
	cmd.Printf("  Pages per chunk: %d\n", settings.Monitor.ChunkSize)
	cmd.Printf("  Retry failed: %s\n", yesNo(settings.Monitor.RetryFailed))
	cmd.Printf("  Prune removed: %s\n", yesNo(settings.Monitor.PruneRemoved))
	cmd.Println()

	cmd.Println("[Query]")
	cmd.Printf("  Match delay: %s\n", settings.Query.MatchDelay)
	cmd.Printf("  Retry backoff: %s (max %d attempts)\n", settings.Query.RetryBackoff, settings.Query.MaxAttempts)
	cmd.Printf("  Chunk pause: %s\n", settings.Query.ChunkPause)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Notifications]")
	if settings.Notify.IsConfigured() {
		cmd.Printf("  SMTP: %s:%d\n", settings.Notify.SMTPHost, settings.Notify.SMTPPort)
		cmd.Printf("  Sender: %s\n", settings.Notify.Sender)
		cmd.Printf("  Recipients: %s\n", strings.Join(settings.Notify.Recipients, ", "))
	} else {
		cmd.Println("  Email: not configured (notifications are logged)")
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("%s %v\n", styled(out, warnStyle, "Warning:"), err)
		cmd.Println("Run 'policywatch settings wizard' to fix configuration issues.")
	} else {
		cmd.Println(styled(out, okStyle, "Configuration is valid."))
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	svc, err := ensureSettingsService()
	if err != nil {
		return err
	}

	cmd.Println(styled(cmd.OutOrStdout(), headingStyle, "policywatch Settings Wizard"))
	cmd.Println("===========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	// Step 1: Collections
	cmd.Println("Step 1: Policy Collections")
	cmd.Println("--------------------------")
	settings.Collections.GovernmentDir = prompt(cmd, reader, "Government policy directory", settings.Collections.GovernmentDir)
	settings.Collections.HospitalDir = prompt(cmd, reader, "Hospital policy directory", settings.Collections.HospitalDir)
	cmd.Println()

	// Step 2: Notifications
	cmd.Println("Step 2: Email Notifications")
	cmd.Println("---------------------------")
	settings.Notify.Sender = prompt(cmd, reader, "Sender address (blank to only log)", settings.Notify.Sender)
	if settings.Notify.Sender != "" {
		recipients := prompt(cmd, reader, "Recipients (comma-separated)", strings.Join(settings.Notify.Recipients, ","))
		settings.Notify.Recipients = splitList(recipients)
	}
	cmd.Println()

	if err := svc.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	// Step 3: LLM
	cmd.Println("Step 3: Configure LLM Provider")
	cmd.Println("------------------------------")
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if _, err := ensureSettingsService(); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	svc, err := ensureSettingsService()
	if err != nil {
		return err
	}

	if err := svc.Validate(); err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Print("Checking LLM provider... ")
	if err := validateLLM(cmd.Context(), &settings.LLM); err != nil {
		cmd.Println(styled(cmd.OutOrStdout(), warnStyle, "FAILED"))
		return fmt.Errorf("LLM provider %s: %w", settings.LLM.Provider, err)
	}
	cmd.Println(styled(cmd.OutOrStdout(), okStyle, "OK"))
	cmd.Println("Configuration is valid.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Print("Validating configuration... ")
	if err := validateLLM(cmd.Context(), &settings.LLM); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	cmd.Printf("%s [%s]: ", label, current)
	if input := readLine(reader); input != "" {
		return input
	}
	return current
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// the buffered reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
