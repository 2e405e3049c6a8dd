package raster

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// fitzRasterizer renders pages in-process via MuPDF. The document is
// opened per call: fitz handles are not safe to share across
// goroutines, and a fresh handle keeps workers stateless.
type fitzRasterizer struct{}

func (r *fitzRasterizer) RenderGray(ctx context.Context, pdfPath string, page, dpi int) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Page: page, Err: err}
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("open document: %w", err)}
	}
	defer doc.Close()

	img, err := doc.ImageDPI(page, float64(dpi))
	if err != nil {
		return nil, &Error{Page: page, Err: err}
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	log.Debug().
		Int("page", page).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("dpi", dpi).
		Msg("rendered page via mupdf")

	return gray, nil
}
