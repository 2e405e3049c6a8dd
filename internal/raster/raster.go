package raster

import (
	"context"
	"fmt"
	"image"
)

// Rasterizer renders a single PDF page to an 8-bit grayscale image at
// the given DPI. Page indices are 0-based. Implementations must be safe
// for concurrent use by multiple workers.
type Rasterizer interface {
	RenderGray(ctx context.Context, pdfPath string, page, dpi int) (*image.Gray, error)
}

// Backend names accepted on the command line.
const (
	BackendMuPDF      = "mupdf"
	BackendPdftoppm   = "pdftoppm"
	BackendPdftocairo = "pdftocairo"
)

// Error wraps a rasterization failure with the page it occurred on.
type Error struct {
	Page int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rasterize page %d: %v", e.Page, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns the rasterizer for the named backend. Poppler backends
// verify that the binary is on PATH up front so a missing install fails
// before any work is dispatched.
func New(backend string) (Rasterizer, error) {
	switch backend {
	case BackendMuPDF:
		return &fitzRasterizer{}, nil
	case BackendPdftoppm, BackendPdftocairo:
		return newPopplerRasterizer(backend)
	default:
		return nil, fmt.Errorf("unsupported rasterizer backend: %s", backend)
	}
}
