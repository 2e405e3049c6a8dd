package assemble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/rs/zerolog/log"
)

// Assembler consumes encoded pages in strict page order and produces
// the output PDF. Append must be called with pages 0,1,2,... exactly;
// Finalize writes the document; Abort discards all partial state so no
// incomplete output is left behind.
type Assembler interface {
	Append(page int, data []byte) error
	Finalize() error
	Abort()
}

// PDF stages encoded page images in a scratch directory and imports
// them into a single PDF on Finalize. The import targets a temp file
// next to the destination which is renamed into place, so the output
// path never holds a half-written document.
type PDF struct {
	outPath string
	dpi     int
	staging string
	paths   []string
	next    int
}

// NewPDF prepares an assembler writing to outPath. The parent directory
// is created if missing.
func NewPDF(outPath string, dpi int) (*PDF, error) {
	if info, err := os.Stat(outPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("output path points to a directory: %s", outPath)
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	staging, err := os.MkdirTemp("", "betteria-pages-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &PDF{outPath: outPath, dpi: dpi, staging: staging}, nil
}

func (a *PDF) Append(page int, data []byte) error {
	if page != a.next {
		return fmt.Errorf("out-of-order append: got page %d, want %d", page, a.next)
	}
	path := filepath.Join(a.staging, fmt.Sprintf("page-%05d.png", page))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("stage page %d: %w", page, err)
	}
	a.paths = append(a.paths, path)
	a.next++
	return nil
}

func (a *PDF) Finalize() error {
	defer os.RemoveAll(a.staging)

	if len(a.paths) == 0 {
		return errors.New("no pages staged; cannot build PDF")
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.DPI = a.dpi

	tmp := a.outPath + ".partial"
	if err := api.ImportImagesFile(a.paths, tmp, imp, nil); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("assemble PDF: %w", err)
	}
	if err := os.Rename(tmp, a.outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move output into place: %w", err)
	}

	log.Debug().Str("output", a.outPath).Int("pages", len(a.paths)).Msg("output PDF assembled")
	return nil
}

// Abort removes staged pages and any partially imported output.
func (a *PDF) Abort() {
	os.RemoveAll(a.staging)
	os.Remove(a.outPath + ".partial")
}
