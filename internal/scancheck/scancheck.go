package scancheck

import (
	"fmt"
	"regexp"
	"sort"
)

// Probe captures the result of probing a single page for text.
type Probe struct {
	PageIndex int
	CharCount int
	Err       string
}

// Report describes the born-digital check over the sampled pages.
// Binarization rasterizes everything, so a PDF that already carries a
// selectable text layer loses it; the pipeline warns when that is
// about to happen.
type Report struct {
	TotalPages         int
	SampledPages       []int
	TotalCharsInSample int
	Threshold          int
	Probes             []Probe
	HasTextLayer       bool
}

// DefaultThreshold is used when a non-positive threshold is passed in.
const DefaultThreshold = 300

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Doc abstracts a PDF document for text probing.
type Doc interface {
	NumPage() int
	PageText(i int) (string, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// defaultOpener is provided in doc_open_fitz.go using go-fitz.
var defaultOpener Opener

func setDefaultOpener(o Opener) { defaultOpener = o }

// HasTextLayer samples a handful of pages and reports whether the PDF
// appears to carry extractable text. If threshold <= 0,
// DefaultThreshold is used.
func HasTextLayer(pdfPath string, threshold int) (bool, *Report, error) {
	return hasTextLayer(defaultOpener, pdfPath, threshold)
}

func hasTextLayer(opener Opener, pdfPath string, threshold int) (bool, *Report, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if opener == nil {
		return false, nil, fmt.Errorf("no PDF opener configured")
	}

	d, err := opener.Open(pdfPath)
	if err != nil {
		return false, nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer d.Close()

	total := d.NumPage()
	sampleIdx := sampleIndices(total)

	probes := make([]Probe, 0, len(sampleIdx))
	totalChars := 0
	for _, idx := range sampleIdx {
		probe := Probe{PageIndex: idx}
		text, terr := d.PageText(idx)
		if terr != nil {
			probe.Err = terr.Error()
			probes = append(probes, probe)
			continue
		}
		cleaned := whitespaceRegex.ReplaceAllString(text, "")
		count := len([]rune(cleaned))
		probe.CharCount = count
		totalChars += count
		probes = append(probes, probe)
		if totalChars >= threshold {
			// Early exit for speed
			break
		}
	}

	rep := &Report{
		TotalPages:         total,
		SampledPages:       sampleIdx,
		TotalCharsInSample: totalChars,
		Threshold:          threshold,
		Probes:             probes,
		HasTextLayer:       totalChars >= threshold,
	}
	return rep.HasTextLayer, rep, nil
}

// sampleIndices picks up to 5 deterministic pages: all of them for
// small documents, otherwise first, quarter, mid, three-quarter, last.
func sampleIndices(total int) []int {
	if total <= 0 {
		return []int{}
	}
	if total <= 5 {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	set := map[int]struct{}{
		0:             {},
		total / 4:     {},
		total / 2:     {},
		3 * total / 4: {},
		total - 1:     {},
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
