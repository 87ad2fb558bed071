package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policywatch/internal/logger"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the summarised policy documents",
	Long: `Ask questions of the policy collections. Queries read the stored
summaries; run 'policywatch serve' to keep them current.`,
}

var queryMatchCmd = &cobra.Command{
	Use:   "match [query]",
	Short: "List documents related to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryMatch,
}

var queryRefsCmd = &cobra.Command{
	Use:   "refs [document] [query]",
	Short: "Quote the pages of a document that reference a query",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryRefs,
}

var queryLookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Answer a query with references from every document",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryLookup,
}

func init() {
	queryCmd.PersistentFlags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.AddCommand(queryMatchCmd)
	queryCmd.AddCommand(queryRefsCmd)
	queryCmd.AddCommand(queryLookupCmd)
	rootCmd.AddCommand(queryCmd)
}

// loadQueryRuntime wires the services and loads stored summaries.
func loadQueryRuntime(cmd *cobra.Command) (*runtime, error) {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return nil, err
	}
	n, err := rt.warm(cmd.Context(), false)
	if err != nil {
		rt.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("loading summaries: %w", err)
	}
	logger.Debug("query: %d summaries loaded", n)
	return rt, nil
}

func runQueryMatch(cmd *cobra.Command, args []string) error {
	rt, err := loadQueryRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	keys, err := rt.query.MatchDocuments(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, map[string]any{"document_names": keys})
	}
	if len(keys) == 0 {
		cmd.Println("No matching documents.")
		return nil
	}
	cmd.Println(styled(cmd.OutOrStdout(), headingStyle, "Matching documents:"))
	for i, key := range keys {
		cmd.Printf("  [%d] %s\n", i+1, key)
	}
	return nil
}

func runQueryRefs(cmd *cobra.Command, args []string) error {
	rt, err := loadQueryRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	document, query := args[0], args[1]
	refs, err := rt.query.DocumentReferences(cmd.Context(), query, document)
	if err != nil {
		if refs != "" {
			cmd.Print(refs)
		}
		return fmt.Errorf("references failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, map[string]any{"document_name": document, "reference": refs})
	}
	cmd.Println(styled(cmd.OutOrStdout(), headingStyle, "References in "+document))
	cmd.Println()
	cmd.Println(strings.TrimRight(refs, "\n"))
	return nil
}

func runQueryLookup(cmd *cobra.Command, args []string) error {
	rt, err := loadQueryRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	answer, err := rt.query.LookupQuery(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, map[string]any{"document_name": nil, "reference": answer})
	}
	cmd.Println(strings.TrimRight(answer, "\n"))
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
