package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/local/betteria/internal/assemble"
	"github.com/local/betteria/internal/config"
	"github.com/local/betteria/internal/document"
	"github.com/local/betteria/internal/scancheck"
	"github.com/local/betteria/internal/threshold"
)

type fakeRasterizer struct {
	failPage int // -1 = never fail
	delay    time.Duration
}

func (f *fakeRasterizer) RenderGray(ctx context.Context, pdfPath string, page, dpi int) (*image.Gray, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if page == f.failPage {
		return nil, fmt.Errorf("rasterize page %d: corrupt page stream", page)
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 220
	}
	return img, nil
}

type fakeAssembler struct {
	mu        sync.Mutex
	appended  []int
	finalized bool
	aborted   bool
}

func (f *fakeAssembler) Append(page int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) == 0 {
		return fmt.Errorf("page %d: empty payload", page)
	}
	f.appended = append(f.appended, page)
	return nil
}

func (f *fakeAssembler) Finalize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = true
	return nil
}

func (f *fakeAssembler) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
}

func testOptions(t *testing.T) config.Options {
	t.Helper()
	return config.Options{
		InputPath:  "scan.pdf",
		OutputPath: filepath.Join(t.TempDir(), "out.pdf"),
		DPI:        72,
		Policy:     threshold.Policy{Mode: threshold.ModeGlobal, Threshold: 128},
		Jobs:       2,
		Rasterizer: "mupdf",
	}
}

func testPipeline(t *testing.T, opts config.Options, pages int, r *fakeRasterizer, asm *fakeAssembler) *Pipeline {
	t.Helper()
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.rasterizer = r
	p.openSource = func(path string) (*document.Source, error) {
		if pages <= 0 {
			return nil, fmt.Errorf("document has no pages: %s", path)
		}
		return &document.Source{Path: path, Pages: pages}, nil
	}
	p.newAssembler = func(string, int) (assemble.Assembler, error) { return asm, nil }
	p.checkText = func(string, int) (bool, *scancheck.Report, error) {
		return false, &scancheck.Report{}, nil
	}
	return p
}

func TestRunProcessesAllPagesInOrder(t *testing.T) {
	asm := &fakeAssembler{}
	p := testPipeline(t, testOptions(t), 7, &fakeRasterizer{failPage: -1}, asm)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(asm.appended) != 7 {
		t.Fatalf("appended %d pages, want 7", len(asm.appended))
	}
	for i, page := range asm.appended {
		if page != i {
			t.Fatalf("append order %v not ascending", asm.appended)
		}
	}
	if !asm.finalized {
		t.Error("assembler never finalized")
	}
	if asm.aborted {
		t.Error("assembler aborted on a successful run")
	}
	if got := p.Completed(); got != 7 {
		t.Errorf("Completed() = %d, want 7", got)
	}
}

func TestRunPageFailureAbortsWithoutOutput(t *testing.T) {
	asm := &fakeAssembler{}
	p := testPipeline(t, testOptions(t), 5, &fakeRasterizer{failPage: 3, delay: time.Millisecond}, asm)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded despite page 3 failing")
	}
	if !strings.Contains(err.Error(), "page 3") {
		t.Errorf("error %q does not name page 3", err)
	}
	if asm.finalized {
		t.Error("assembler finalized on a failed run")
	}
	if !asm.aborted {
		t.Error("assembler not aborted on a failed run")
	}
	for _, page := range asm.appended {
		if page >= 3 {
			t.Errorf("page %d appended past the failure", page)
		}
	}
}

func TestRunZeroPagesFails(t *testing.T) {
	asm := &fakeAssembler{}
	p := testPipeline(t, testOptions(t), 0, &fakeRasterizer{failPage: -1}, asm)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run treated a zero-page document as success")
	}
	if asm.finalized || asm.aborted || len(asm.appended) != 0 {
		t.Error("assembler touched for a document that failed to open")
	}
}

func TestRunHonorsDeadline(t *testing.T) {
	opts := testOptions(t)
	opts.Timeout = 20 * time.Millisecond

	asm := &fakeAssembler{}
	p := testPipeline(t, opts, 50, &fakeRasterizer{failPage: -1, delay: 50 * time.Millisecond}, asm)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run ignored its deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded in chain", err)
	}
	if asm.finalized {
		t.Error("assembler finalized after deadline abort")
	}
	if !asm.aborted {
		t.Error("assembler not aborted after deadline abort")
	}
}

func TestRunClampsWorkersToPageCount(t *testing.T) {
	opts := testOptions(t)
	opts.Jobs = 64

	asm := &fakeAssembler{}
	p := testPipeline(t, opts, 2, &fakeRasterizer{failPage: -1}, asm)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(asm.appended) != 2 {
		t.Fatalf("appended %d pages, want 2", len(asm.appended))
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	opts := testOptions(t)
	opts.Policy = threshold.Policy{Mode: threshold.ModeAdaptive, BlockSize: 30, C: 15}

	if _, err := New(opts); err == nil {
		t.Fatal("New accepted an even adaptive block size")
	}
}
