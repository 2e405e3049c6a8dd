package raster

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// popplerRasterizer shells out to poppler's pdftoppm or pdftocairo,
// one invocation per page. Each call renders into its own temp dir
// which is removed before returning, success or not.
type popplerRasterizer struct {
	binary string
}

func newPopplerRasterizer(binary string) (*popplerRasterizer, error) {
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("poppler's %q not found in PATH (install poppler-utils): %w", binary, err)
	}
	return &popplerRasterizer{binary: binary}, nil
}

func (r *popplerRasterizer) RenderGray(ctx context.Context, pdfPath string, page, dpi int) (*image.Gray, error) {
	tempDir, err := os.MkdirTemp("", "betteria-raster-")
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer os.RemoveAll(tempDir)

	// Poppler pages are 1-based.
	num := strconv.Itoa(page + 1)
	prefix := filepath.Join(tempDir, "page")
	cmd := exec.CommandContext(ctx, r.binary,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", num,
		"-l", num,
		pdfPath,
		prefix,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(output))
		if msg != "" {
			err = fmt.Errorf("%s: %w (%s)", r.binary, err, msg)
		} else {
			err = fmt.Errorf("%s: %w", r.binary, err)
		}
		return nil, &Error{Page: page, Err: err}
	}

	imgPath, err := findRendered(tempDir)
	if err != nil {
		return nil, &Error{Page: page, Err: err}
	}

	gray, err := loadGray(imgPath)
	if err != nil {
		return nil, &Error{Page: page, Err: err}
	}

	log.Debug().
		Int("page", page).
		Int("width", gray.Bounds().Dx()).
		Int("height", gray.Bounds().Dy()).
		Str("backend", r.binary).
		Msg("rendered page via poppler")

	return gray, nil
}

// findRendered locates the single PNG poppler produced. Naming varies
// between poppler versions ("page-3.png", "page-03.png", "page.png"),
// so match any page*.png in the scratch dir.
func findRendered(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return "", fmt.Errorf("glob rendered images: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no rendered image found in %s", dir)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("expected 1 rendered image, found %d in %s", len(matches), dir)
	}
	return matches[0], nil
}

func loadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray, nil
}
