package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/betteria/internal/assemble"
	"github.com/local/betteria/internal/codec"
	"github.com/local/betteria/internal/config"
	"github.com/local/betteria/internal/dispatcher"
	"github.com/local/betteria/internal/document"
	"github.com/local/betteria/internal/raster"
	"github.com/local/betteria/internal/scancheck"
	"github.com/local/betteria/internal/threshold"
)

// Pipeline drives one enhancement run end to end: count pages, fan the
// page jobs out across the dispatcher, stream the ordered results into
// the assembler, and finalize or clean up.
type Pipeline struct {
	opts  config.Options
	runID string

	rasterizer   raster.Rasterizer
	openSource   func(path string) (*document.Source, error)
	newAssembler func(outPath string, dpi int) (assemble.Assembler, error)
	checkText    func(path string, threshold int) (bool, *scancheck.Report, error)

	completed atomic.Int64
}

// New builds a pipeline with production collaborators. Configuration
// and the rasterizer backend are resolved here so every failure mode
// that needs no page work surfaces before dispatch.
func New(opts config.Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r, err := raster.New(opts.Rasterizer)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		opts:       opts,
		runID:      uuid.NewString(),
		rasterizer: r,
		openSource: document.Open,
		newAssembler: func(outPath string, dpi int) (assemble.Assembler, error) {
			return assemble.NewPDF(outPath, dpi)
		},
		checkText: scancheck.HasTextLayer,
	}, nil
}

// Completed reports how many page jobs have finished so far. It grows
// monotonically even while results are buffered for ordered emission.
func (p *Pipeline) Completed() int { return int(p.completed.Load()) }

// Run executes the pipeline. On any failure no output file is left at
// the destination.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	src, err := p.openSource(p.opts.InputPath)
	if err != nil {
		return err
	}

	// Binarization flattens everything to page images; a born-digital
	// PDF loses its selectable text. Worth a warning, never an error.
	if hasText, rep, cerr := p.checkText(src.Path, 0); cerr == nil && hasText {
		log.Warn().
			Int("chars_sampled", rep.TotalCharsInSample).
			Msg("input already has a text layer; it will not survive enhancement")
	}

	workers := p.opts.Jobs
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > src.Pages {
		workers = src.Pages
	}

	log.Info().
		Str("run_id", p.runID).
		Str("input", src.Path).
		Str("output", p.opts.OutputPath).
		Int("pages", src.Pages).
		Int("workers", workers).
		Int("dpi", p.opts.DPI).
		Str("mode", string(p.opts.Policy.Mode)).
		Str("rasterizer", p.opts.Rasterizer).
		Msg("enhancement run started")

	asm, err := p.newAssembler(p.opts.OutputPath, p.opts.DPI)
	if err != nil {
		return err
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	total := src.Pages
	pool := dispatcher.New(dispatcher.Config{
		Workers: workers,
		OnPageDone: func(completed int) {
			p.completed.Store(int64(completed))
			log.Info().Int("done", completed).Int("total", total).Msg("page processed")
		},
	})

	err = pool.Run(ctx, total, p.worker(src.Path), func(r dispatcher.Result) error {
		return asm.Append(r.Page, r.Payload)
	})
	if err != nil {
		asm.Abort()
		return err
	}

	if err := asm.Finalize(); err != nil {
		asm.Abort()
		return err
	}

	log.Info().
		Str("run_id", p.runID).
		Int("pages", total).
		Dur("elapsed", time.Since(start)).
		Str("output", p.opts.OutputPath).
		Msg("enhancement run complete")
	return nil
}

// worker returns the per-page job: rasterize, threshold, encode. All
// failures travel inside the Result so one bad page can never corrupt
// the bookkeeping of the others.
func (p *Pipeline) worker(pdfPath string) dispatcher.WorkFunc {
	pol := p.opts.Policy
	dpi := p.opts.DPI
	return func(ctx context.Context, page int) (res dispatcher.Result) {
		res.Page = page
		defer func() {
			if r := recover(); r != nil {
				res.Payload = nil
				res.Err = fmt.Errorf("page %d: panic: %v", page, r)
			}
		}()

		gray, err := p.rasterizer.RenderGray(ctx, pdfPath, page, dpi)
		if err != nil {
			res.Err = err
			return res
		}

		bw := threshold.Apply(gray, pol)

		data, err := codec.EncodePage(bw)
		if err != nil {
			res.Err = fmt.Errorf("encode page %d: %w", page, err)
			return res
		}
		res.Payload = data
		return res
	}
}
