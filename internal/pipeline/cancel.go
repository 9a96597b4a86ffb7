package pipeline

import "sync/atomic"

// CancelFlag is the single piece of state shared between the
// controlling caller and a running pipeline. The caller sets it once;
// the pipeline polls it at fixed intervals and winds down both
// activities cooperatively.
type CancelFlag struct {
	flag atomic.Bool
}

// NewCancelFlag creates an unset cancellation flag
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Set requests cancellation. Idempotent.
func (f *CancelFlag) Set() {
	f.flag.Store(true)
}

// IsSet returns true if cancellation has been requested
func (f *CancelFlag) IsSet() bool {
	return f.flag.Load()
}
