package sysconf

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// trapSignals intercepts termination signals for the lifetime of a transaction so
// the process is not killed between snapshot and release. The returned stop
// function restores default handling.
func trapSignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	return ch, func() { signal.Stop(ch) }
}

// noSignals never delivers.
func noSignals() (<-chan os.Signal, func()) {
	return nil, func() {}
}

type signalLatch struct {
	ch       <-chan os.Signal
	received os.Signal
}

// fired reports whether a signal has arrived, without blocking.
func (s *signalLatch) fired() bool {
	if s.received != nil {
		return true
	}
	select {
	case sig := <-s.ch:
		s.received = sig
		return true
	default:
		return false
	}
}
