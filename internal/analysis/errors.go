package analysis

import (
	"fmt"
	"strings"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// InputAbsentError reports a missing upstream artifact (fact store or
// prior-stage output file). Fatal; raised before any computation starts.
type InputAbsentError struct {
	Path string
}

func (e *InputAbsentError) Error() string {
	return fmt.Sprintf("required input %s does not exist", e.Path)
}

// EmptyAfterFilterError reports that the configured filters eliminated all
// rows at a stage. Fatal, but diagnosable: TopItems carries the pre-filter
// item frequencies so the operator can recalibrate thresholds.
type EmptyAfterFilterError struct {
	Stage    string
	TopItems []model.ItemFreq
}

func (e *EmptyAfterFilterError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no rows left after %s filter", e.Stage)
	if len(e.TopItems) > 0 {
		b.WriteString("; top raw item frequencies:")
		for i, f := range e.TopItems {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, " %s=%d", f.ItemName, f.Count)
		}
	}
	return b.String()
}

// DataInconsistencyError reports a match present in the feature matrix that
// lacks a label after alignment. Fatal without fallback: the row-index
// alignment invariant was violated upstream and any statistic computed over
// the matrix would silently misattribute.
type DataInconsistencyError struct {
	MatchID int64
	Missing string
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("match %d has no %s label after alignment", e.MatchID, e.Missing)
}
