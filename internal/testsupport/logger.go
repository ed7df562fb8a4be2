package testsupport

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger returns a sugared logger that writes through the test's log output.
func Logger(t testing.TB) *zap.SugaredLogger {
	t.Helper()
	return zaptest.NewLogger(t).Sugar()
}

// ObservedLogger returns a logger that records entries at or above Info for assertions.
func ObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, observed := observer.New(zap.InfoLevel)
	return zap.New(core).Sugar(), observed
}
