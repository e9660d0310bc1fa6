// Package iox provides I/O helpers for best-effort cleanup paths.
package iox

import "io"

// DiscardClose closes c and discards the error.
//
//	defer iox.DiscardClose(pipe)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(msgs))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
//
//	defer iox.DiscardErr(logger.Sync)
func DiscardErr(fn func() error) { _ = fn() }

// Reap closes every reader, then calls wait, discarding all errors.
// Closing the readers first unblocks a child still writing to them, so
// wait cannot hang on a full pipe.
func Reap(wait func() error, readers ...io.Closer) {
	for _, r := range readers {
		if r != nil {
			DiscardClose(r)
		}
	}
	DiscardErr(wait)
}
