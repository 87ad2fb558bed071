package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policywatch/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

var (
	summarizeOut string
	checkText    bool
)

// openPages opens a standalone document for page extraction.
var openPages = func(ctx context.Context, path string) (driven.PageReader, error) {
	dir, name := filepath.Split(path)
	ext := filepath.Ext(name)
	if dir == "" {
		dir = "."
	}
	src := filesystem.NewDocumentSource(domain.CollectionGovernment, dir, ext)
	return src.Open(ctx, strings.TrimSuffix(name, ext))
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarise one PDF document",
	Long: `Summarise a PDF chunk by chunk and print the result. The summary is not
added to either collection.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

var checkCmd = &cobra.Command{
	Use:   "check [policy-a] [policy-b]",
	Short: "Check two policies for inconsistencies",
	Long: `Summarise two PDF documents and ask whether they contradict each other.
With --text the arguments are read as existing summary text files instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeOut, "out", "o", "", "write the summary to a file")
	checkCmd.Flags().BoolVar(&checkText, "text", false, "arguments are summary text files")
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(checkCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	text, chunks, err := summarizeFile(cmd.Context(), rt, args[0])
	if err != nil {
		return err
	}

	if summarizeOut != "" {
		if err := os.WriteFile(summarizeOut, []byte(text), 0o600); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		cmd.Printf("Summary of %d chunk(s) written to %s\n", chunks, summarizeOut)
		return nil
	}

	cmd.Println(styled(cmd.OutOrStdout(), headingStyle, "Summary of "+filepath.Base(args[0])))
	cmd.Println()
	cmd.Print(text)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck // best-effort cleanup

	summaries := make([]string, len(args))
	for i, path := range args {
		if checkText {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read summary: %w", err)
			}
			summaries[i] = string(data)
			continue
		}
		text, _, err := summarizeFile(cmd.Context(), rt, path)
		if err != nil {
			return err
		}
		summaries[i] = text
	}

	verdict, err := rt.checker.Check(cmd.Context(), summaries[0], summaries[1])
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if verdict.Conflict {
		cmd.Println(styled(out, warnStyle, "Inconsistency found"))
	} else {
		cmd.Println(styled(out, okStyle, "No inconsistency found"))
	}
	cmd.Println()
	cmd.Println(verdict.Explanation)
	return nil
}

func summarizeFile(ctx context.Context, rt *runtime, path string) (string, int, error) {
	reader, err := openPages(ctx, path)
	if err != nil {
		return "", 0, err
	}
	defer reader.Close()

	logger.Info("summarizing %s (%d pages)", path, reader.NumPages())
	return rt.summarizer.SummarizePages(ctx, filepath.Base(path), reader)
}
