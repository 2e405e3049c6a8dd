package dispatcher

import (
	"fmt"
	"sort"
	"strings"
)

// PageFailure records one page that could not be processed.
type PageFailure struct {
	Page int
	Err  error
}

func (f PageFailure) String() string {
	return fmt.Sprintf("page %d: %v", f.Page, f.Err)
}

// RunError aggregates every page failure observed before the abort
// completed. The run is treated as failed as a whole: a silently
// missing page would desynchronize page numbering downstream.
type RunError struct {
	Failures []PageFailure
}

func (e *RunError) Error() string {
	sort.Slice(e.Failures, func(i, j int) bool { return e.Failures[i].Page < e.Failures[j].Page })
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%d page(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}
