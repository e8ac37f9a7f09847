//go:build !windows

package control

import (
	"errors"
	"syscall"
	"time"
)

func setNonblock(fd int, on bool) error {
	return syscall.SetNonblock(fd, on)
}

func readFd(fd int, buf []byte) (int, error) {
	n, err := syscall.Read(fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

func wouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func idle() {
	time.Sleep(5 * time.Millisecond)
}
