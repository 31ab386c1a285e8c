package chart

import "fmt"

// Reason is a machine-readable cause carried by SelectionError and ChartError.
type Reason string

const (
	ReasonUnknownKind         Reason = "unknown chart type"
	ReasonUnknownColumn       Reason = "unknown column"
	ReasonInsufficientNumeric Reason = "insufficient numeric columns"
	ReasonMissingTarget       Reason = "missing target"
	ReasonNoNumericFeatures   Reason = "no numeric features"
	ReasonNoValidPoints       Reason = "no valid data points"
	ReasonFitFailed           Reason = "fit failed"
	ReasonRenderFailed        Reason = "render failed"
	ReasonWriteFailed         Reason = "write failed"
)

// SelectionError reports column requirements a chart kind could not meet.
type SelectionError struct {
	Kind   Kind
	Reason Reason
	// Column names the offending column or token, if any.
	Column string
}

func (e *SelectionError) Error() string {
	var msg string
	switch {
	case e.Reason == ReasonUnknownKind:
		msg = fmt.Sprintf("%s %q", e.Reason, e.Column)
	case e.Column != "":
		msg = fmt.Sprintf("%s %q", e.Reason, e.Column)
	default:
		msg = string(e.Reason)
	}
	if e.Kind == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// ChartError reports a failure while computing or rendering a chart.
type ChartError struct {
	Kind   Kind
	Reason Reason
	Err    error
}

func (e *ChartError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *ChartError) Unwrap() error { return e.Err }

// UserFacing reports whether the failure stems from the data the caller
// chose rather than from rendering or I/O.
func (e *ChartError) UserFacing() bool {
	switch e.Reason {
	case ReasonNoValidPoints, ReasonNoNumericFeatures, ReasonInsufficientNumeric, ReasonFitFailed:
		return true
	}
	return false
}
