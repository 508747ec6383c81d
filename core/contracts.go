package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// ErrorReporter receives failures that would otherwise escape a message
// loop, such as a panicking RPC handler.
type ErrorReporter interface {
	ReportUncaught(ctx context.Context, err error)
}

type ErrorReporterFunc func(ctx context.Context, err error)

func (f ErrorReporterFunc) ReportUncaught(ctx context.Context, err error) {
	if f == nil {
		return
	}
	f(ctx, err)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}
