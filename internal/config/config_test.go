package config

import (
	"path/filepath"
	"testing"

	"github.com/local/betteria/internal/threshold"
)

func TestParseJobs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"auto", "auto", 0, false},
		{"max", "max", 0, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, false},
		{"uppercase auto", "AUTO", 0, false},
		{"padded", "  4 ", 4, false},
		{"numeric", "3", 3, false},
		{"one", "1", 1, false},
		{"negative", "-2", 0, true},
		{"garbage", "many", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJobs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseJobs(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"scan.pdf", "scan-enhanced.pdf"},
		{filepath.Join("docs", "invoice.pdf"), filepath.Join("docs", "invoice-enhanced.pdf")},
		{"noext", "noext-enhanced.pdf"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.input); got != tt.want {
			t.Errorf("DefaultOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func validOptions() Options {
	return Options{
		InputPath:  "scan.pdf",
		OutputPath: "scan-enhanced.pdf",
		DPI:        150,
		Policy:     threshold.Policy{Mode: threshold.ModeAdaptive, BlockSize: 31, C: 15},
		Rasterizer: "mupdf",
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"valid", func(o *Options) {}, false},
		{"missing input", func(o *Options) { o.InputPath = "" }, true},
		{"missing output", func(o *Options) { o.OutputPath = "" }, true},
		{"zero dpi", func(o *Options) { o.DPI = 0 }, true},
		{"negative dpi", func(o *Options) { o.DPI = -150 }, true},
		{"bad backend", func(o *Options) { o.Rasterizer = "ghostscript" }, true},
		{"poppler backends allowed", func(o *Options) { o.Rasterizer = "pdftocairo" }, false},
		{"negative timeout", func(o *Options) { o.Timeout = -1 }, true},
		{"even block size", func(o *Options) { o.Policy.BlockSize = 30 }, true},
		{"zero c-val", func(o *Options) { o.Policy.C = 0 }, true},
		{"global out of range", func(o *Options) {
			o.Policy = threshold.Policy{Mode: threshold.ModeGlobal, Threshold: 300}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsValidateRejectsDirOutput(t *testing.T) {
	opts := validOptions()
	opts.OutputPath = t.TempDir()
	if err := opts.Validate(); err == nil {
		t.Fatal("Validate accepted a directory as output path")
	}
}
