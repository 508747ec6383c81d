package core

import (
	"context"
	"sync"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// LogErrorReporter writes uncaught errors to a logger instead of a
// process-wide handler.
type LogErrorReporter struct {
	Logger Logger
}

func (r LogErrorReporter) ReportUncaught(ctx context.Context, err error) {
	if err == nil || r.Logger == nil {
		return
	}
	logger := r.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	mapped := MapError(err)
	logger.Error("uncaught error", "error", err.Error(), "text_code", mapped.TextCode)
}

// MemoryErrorReporter keeps reported errors, mostly for tests and embedders
// that surface them later.
type MemoryErrorReporter struct {
	mu     sync.Mutex
	errors []error
}

func (r *MemoryErrorReporter) ReportUncaught(_ context.Context, err error) {
	if r == nil || err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *MemoryErrorReporter) Errors() []error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ErrorReporter   = LogErrorReporter{}
	_ ErrorReporter   = (*MemoryErrorReporter)(nil)
	_ ErrorReporter   = ErrorReporterFunc(nil)
)
