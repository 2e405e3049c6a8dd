package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// EncodePage compresses a bilevel page image into the byte form handed
// to the assembler. PNG is used as the interchange format; the PDF
// importer recompresses page images to flate streams, and bilevel
// content deflates very well.
func EncodePage(img *image.Gray) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("invalid page dimensions %dx%d", b.Dx(), b.Dy())
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	return buf.Bytes(), nil
}
