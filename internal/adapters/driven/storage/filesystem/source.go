package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DocumentSource = (*DocumentSource)(nil)

// DocumentSource lists and opens PDF documents in one directory.
type DocumentSource struct {
	collection domain.Collection
	dir        string
	extension  string
}

// NewDocumentSource creates a source over dir. Only files whose extension
// matches (case-insensitive) are considered documents.
func NewDocumentSource(collection domain.Collection, dir, extension string) *DocumentSource {
	if extension == "" {
		extension = domain.DefaultExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &DocumentSource{
		collection: collection,
		dir:        dir,
		extension:  strings.ToLower(extension),
	}
}

// Collection returns the collection this source serves.
func (s *DocumentSource) Collection() domain.Collection {
	return s.collection
}

// Dir returns the watched directory.
func (s *DocumentSource) Dir() string {
	return s.dir
}

// List returns the documents currently in the directory, ordered by key.
// Subdirectories are ignored. A missing directory is an empty collection.
func (s *DocumentSource) List(ctx context.Context) ([]domain.DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.DocumentRef{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	refs := make([]domain.DocumentRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := s.keyOf(e.Name())
		if !ok {
			continue
		}
		refs = append(refs, domain.DocumentRef{
			Key:        key,
			Collection: s.collection,
			Path:       filepath.Join(s.dir, e.Name()),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

// Open parses the document with the given key.
func (s *DocumentSource) Open(ctx context.Context, key domain.DocumentKey) (driven.PageReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.find(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}

	r, err := parse(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}

	return &pageReader{file: f, reader: r}, nil
}

// Save writes an uploaded document into the directory, replacing any
// file with the same name.
func (s *DocumentSource) Save(ctx context.Context, filename string, r io.Reader) (domain.DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.DocumentRef{}, err
	}

	name := filepath.Base(filename)
	key, ok := s.keyOf(name)
	if !ok || key == "" {
		return domain.DocumentRef{}, fmt.Errorf("%w: file name %q", domain.ErrInvalidInput, filename)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.DocumentRef{}, fmt.Errorf("create %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return domain.DocumentRef{}, fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return domain.DocumentRef{}, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return domain.DocumentRef{}, fmt.Errorf("close %s: %w", tmp, err)
	}
	// Rename last so the monitor never lists a half-written file.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return domain.DocumentRef{}, fmt.Errorf("rename %s: %w", path, err)
	}

	return domain.DocumentRef{Key: key, Collection: s.collection, Path: path}, nil
}

// keyOf returns the key for a file name if it carries the source extension.
func (s *DocumentSource) keyOf(name string) (domain.DocumentKey, bool) {
	ext := filepath.Ext(name)
	if strings.ToLower(ext) != s.extension {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

// find resolves a key to a path, tolerating any extension case.
func (s *DocumentSource) find(key domain.DocumentKey) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("list %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if k, ok := s.keyOf(e.Name()); ok && k == key {
			return filepath.Join(s.dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%s/%s: %w", s.collection, key, domain.ErrNotFound)
}

// parse wraps pdf.NewReader, which panics on some malformed inputs.
func parse(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			reader, err = nil, fmt.Errorf("parse pdf: %v", p)
		}
	}()
	return pdf.NewReader(r, size)
}

// pageReader serves page text from a parsed PDF.
type pageReader struct {
	file   *os.File
	reader *pdf.Reader
}

func (p *pageReader) NumPages() int {
	return p.reader.NumPage()
}

func (p *pageReader) PageText(page int) (text string, err error) {
	if page < 1 || page > p.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", page)
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", page, r)
		}
	}()

	pg := p.reader.Page(page)
	if pg.V.IsNull() {
		return "", nil
	}
	return pg.GetPlainText(nil)
}

func (p *pageReader) Close() error {
	return p.file.Close()
}
