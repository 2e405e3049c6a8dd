package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// EnsurePDF verifies by magic bytes that the file is actually a PDF.
// Extension checks alone are not enough: scans frequently arrive
// renamed, and handing a non-PDF to the rasterizer yields confusing
// per-page failures instead of one clear error up front.
func EnsurePDF(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}

	mime := mtype.String()
	log.Debug().Str("mime", mime).Str("ext", mtype.Extension()).Str("file", path).Msg("detected file type")

	if mime == "application/pdf" || strings.HasPrefix(mime, "application/pdf;") {
		return nil
	}
	return fmt.Errorf("input is not a PDF (detected %s)", mime)
}
