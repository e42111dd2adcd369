//go:build linux

package estop

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const pollInterval = 100 * time.Millisecond

// rawInput switches stdin to cbreak mode: characters arrive without a
// newline, but Ctrl+C still works. The returned function restores the
// previous terminal state; skipping it leaves the shell garbled.
func rawInput() (func(), error) {
	fd := int(os.Stdin.Fd())

	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("estop: stdin is not a terminal: %w", err)
	}

	raw := *old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("estop: failed to set cbreak mode: %w", err)
	}

	return func() {
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, old); err != nil {
			logger.Error("failed to restore terminal state", "error", err)
		}
	}, nil
}

// monitor polls stdin every 100ms and reads single characters. Polling
// rather than a blocking read lets Stop take effect promptly.
func (l *Listener) monitor() {
	fd := int(os.Stdin.Fd())
	buf := make([]byte, 1)

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(pollInterval.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logger.Error("stdin poll failed", "error", err)
			return
		}
		if n == 0 {
			continue
		}

		if _, err := os.Stdin.Read(buf); err != nil {
			logger.Error("stdin read failed", "error", err)
			return
		}
		if buf[0] == ' ' {
			l.trigger()
		}
	}
}
