// Package filesystem provides directory-backed document sources and
// summary storage.
//
// Each collection is a flat directory of documents. A document's key is
// its file name without the extension. Summaries are written beside the
// documents under a "summary" subdirectory as <key>_summary.txt.
package filesystem
