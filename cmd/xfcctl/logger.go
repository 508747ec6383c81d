package main

import (
	"io"

	glog "github.com/goliatone/go-logger/glog"
)

func newCLILogger(w io.Writer, verbose bool) *glog.BaseLogger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return glog.NewLogger(
		glog.WithName("xfcctl"),
		glog.WithLoggerTypeConsole(),
		glog.WithWriter(w),
		glog.WithLevel(level),
	)
}
