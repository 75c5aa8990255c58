// SPDX-License-Identifier: MIT
package transport

import "vibesrgb/internal/dsp"

// Transport delivers each tick's bin sequence to an external observer.
// Implementations are called from the scheduler goroutine and must be
// best-effort: a failing or slow observer never stalls the pipeline.
type Transport interface {
	Send(bins []dsp.Bin) error
	Close() error
}
