package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SummaryStore = (*SummaryStore)(nil)

// summaryDir is the subdirectory of a collection holding summaries.
const summaryDir = "summary"

// SummaryStore writes summaries under each collection's directory.
type SummaryStore struct {
	dirs domain.CollectionSettings
}

// NewSummaryStore creates a summary store rooted at the collection directories.
func NewSummaryStore(dirs domain.CollectionSettings) *SummaryStore {
	return &SummaryStore{dirs: dirs}
}

// Path returns the artifact path for a document summary.
func (s *SummaryStore) Path(col domain.Collection, key domain.DocumentKey) string {
	return filepath.Join(s.dirs.Dir(col), summaryDir, key+"_summary.txt")
}

// Write stores the summary text, replacing any previous artifact.
func (s *SummaryStore) Write(ctx context.Context, col domain.Collection, key domain.DocumentKey, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !col.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCollection, col)
	}

	path := s.Path(col, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write summary %s: %w", path, err)
	}
	return nil
}

// Read returns the persisted summary text.
func (s *SummaryStore) Read(ctx context.Context, col domain.Collection, key domain.DocumentKey) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !col.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownCollection, col)
	}

	data, err := os.ReadFile(s.Path(col, key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("summary %s/%s: %w", col, key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return string(data), nil
}
