package worker

import (
	"errors"

	"github.com/okian/ace/pkg/logger"
)

// ErrPanic wraps a recovered panic of a job.
var ErrPanic = errors.New("job panicked")

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithResults sets the callback receiving each job result.
func WithResults(fn func(Result)) Option {
	return func(w *InMemoryWorker) {
		w.results = fn
	}
}
