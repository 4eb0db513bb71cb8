// Package monitoring reports failed runs to an error tracker.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/drtmdp/core/model"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Kind names the class of a solve error.
func Kind(err error) string {
	switch {
	case errors.Is(err, model.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, model.ErrGraphUnreachable):
		return "graph_unreachable"
	case errors.Is(err, model.ErrCombinatorialMismatch):
		return "combinatorial_mismatch"
	case errors.Is(err, model.ErrNumericalDegeneracy):
		return "numerical_degeneracy"
	case errors.Is(err, model.ErrNotConverged):
		return "not_converged"
	default:
		return "internal"
	}
}

// Report sends err to m tagged with its kind. Cancellations are not
// reported. It returns whether the error was sent.
func Report(m Monitor, err error, tags map[string]string) bool {
	if err == nil || m == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	all["error_kind"] = Kind(err)
	m.CaptureException(err, all)
	return true
}
