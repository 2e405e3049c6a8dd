package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/betteria/internal/config"
	"github.com/local/betteria/internal/logger"
	"github.com/local/betteria/internal/pipeline"
	"github.com/local/betteria/internal/raster"
	"github.com/local/betteria/internal/threshold"
)

// Version info - set via ldflags at build time.
var (
	version   = "dev"
	gitCommit = "unknown"
)

var (
	inputFile  string
	outputFile string
	dpi        int
	thresh     int
	blockSize  int
	cVal       int
	adaptive   bool
	invert     bool
	quiet      bool
	jobs       string
	rasterizer string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "betteria [flags] <input.pdf>",
	Short: "Clean and compress a scanned PDF",
	Long: `betteria rasterizes every page of a scanned PDF, binarizes it with a
global or adaptive threshold, and reassembles the cleaned pages into a
smaller, higher-contrast output PDF. Pages are processed in parallel
but always land in the output in their original order.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if inputFile != "" && inputFile != args[0] {
				return fmt.Errorf("input given both as argument (%s) and --input (%s)", args[0], inputFile)
			}
			inputFile = args[0]
		}
		if inputFile == "" {
			return fmt.Errorf("input PDF is required (positional argument or --input)")
		}
		if outputFile == "" {
			outputFile = config.DefaultOutputPath(inputFile)
		}

		jobCount, err := config.ParseJobs(jobs)
		if err != nil {
			return err
		}

		pol := threshold.Policy{
			Mode:      threshold.ModeGlobal,
			Threshold: thresh,
			BlockSize: blockSize,
			C:         cVal,
			Invert:    invert,
		}
		if adaptive {
			pol.Mode = threshold.ModeAdaptive
		}

		opts := config.Options{
			InputPath:  inputFile,
			OutputPath: outputFile,
			DPI:        dpi,
			Policy:     pol,
			Jobs:       jobCount,
			Rasterizer: rasterizer,
			Timeout:    timeout,
			Quiet:      quiet,
			Logging:    config.LoggingFromEnv(),
		}
		if quiet {
			opts.Logging.Level = "warn"
		}

		if err := logger.Init(logger.Options{
			Level:      opts.Logging.Level,
			Pretty:     opts.Logging.Pretty,
			File:       opts.Logging.File,
			MaxSizeMB:  opts.Logging.MaxSizeMB,
			MaxBackups: opts.Logging.MaxBackups,
			MaxAgeDays: opts.Logging.MaxAgeDays,
			Compress:   opts.Logging.Compress,
		}); err != nil {
			return err
		}

		p, err := pipeline.New(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := p.Run(ctx); err != nil {
			log.Error().Err(err).Msg("enhancement run failed")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s)", version, gitCommit)

	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Path to input PDF")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Path to output PDF (default: <input-stem>-enhanced.pdf)")
	rootCmd.Flags().IntVar(&dpi, "dpi", 150, "DPI for rasterizing PDF pages")
	rootCmd.Flags().IntVar(&thresh, "threshold", 128, "Global threshold value (0-255), used when adaptive is off")
	rootCmd.Flags().IntVar(&blockSize, "block-size", 31, "Odd-sized neighborhood for adaptive thresholding")
	rootCmd.Flags().IntVar(&cVal, "c-val", 15, "Constant subtracted from the local mean in adaptive thresholding")
	rootCmd.Flags().BoolVar(&adaptive, "adaptive", true, "Use adaptive thresholding instead of a global threshold")
	rootCmd.Flags().BoolVar(&invert, "invert", false, "Invert pixels before thresholding (light text on dark background)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.Flags().StringVarP(&jobs, "jobs", "j", "auto", "Parallel page workers ('auto' or an integer; 1 = sequential)")
	rootCmd.Flags().StringVar(&rasterizer, "rasterizer", raster.BackendMuPDF, "Rasterizer backend: mupdf, pdftoppm or pdftocairo")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall run deadline (0 = none)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
