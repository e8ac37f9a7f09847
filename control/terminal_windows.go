//go:build windows

package control

import (
	"errors"
	"time"
)

var errNonblockUnsupported = errors.New("non-blocking console input is not supported")

func setNonblock(fd int, on bool) error {
	return errNonblockUnsupported
}

func readFd(fd int, buf []byte) (int, error) {
	return 0, errNonblockUnsupported
}

func wouldBlock(err error) bool {
	return false
}

func idle() {
	time.Sleep(5 * time.Millisecond)
}
