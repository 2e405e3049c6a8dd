package document

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/local/betteria/internal/filetype"
)

// Source is an opened input document: a validated local PDF plus its
// page count. Counting happens once at open time so a bad document
// fails before any worker starts.
type Source struct {
	Path  string
	Pages int
}

// Open validates path and determines the page count. A document with
// zero pages is a failure, not a degenerate success: there is nothing
// to enhance and an empty output PDF would be invalid.
func Open(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input PDF not found: %s", path)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input path is a directory: %s", path)
	}

	if err := filetype.EnsurePDF(path); err != nil {
		return nil, err
	}

	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed: %w", err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("document has no pages: %s", path)
	}

	return &Source{Path: path, Pages: n}, nil
}
