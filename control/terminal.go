package control

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Terminal reads single keys from a raw-mode terminal and applies the bound
// actions. Arrow keys step filters and intensity; Ctrl-C quits because raw
// mode disables the interrupt signal.
type Terminal struct {
	target Target
	keys   Keymap
	in     *os.File
	fd     int

	stopCh      chan struct{}
	done        chan struct{}
	stopped     sync.Once
	nonblockSet bool
	blocking    bool
	oldState    *term.State

	dec keyDecoder
}

// NewTerminal reads keys from in, usually os.Stdin.
func NewTerminal(target Target, in *os.File) *Terminal {
	return &Terminal{
		target: target,
		keys:   DefaultKeymap(),
		in:     in,
		fd:     int(in.Fd()),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start switches the terminal to raw mode and starts reading. Call Stop to
// restore it.
func (t *Terminal) Start() error {
	if !term.IsTerminal(t.fd) {
		close(t.done)
		return fmt.Errorf("fd %d is not a terminal", t.fd)
	}
	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		close(t.done)
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	t.oldState = oldState

	if err := setNonblock(t.fd, true); err != nil {
		log.WithError(err).Debug("Terminal stays blocking")
		t.blocking = true
	} else {
		t.nonblockSet = true
	}

	go t.readLoop()
	log.Debug("Terminal control started")
	return nil
}

func (t *Terminal) readLoop() {
	defer close(t.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, err := t.read(buf)
		if n > 0 {
			t.handle(buf[0])
		}
		if err != nil {
			if wouldBlock(err) {
				idle()
				continue
			}
			return
		}
		if n == 0 {
			idle()
		}
	}
}

func (t *Terminal) read(buf []byte) (int, error) {
	if t.blocking {
		return t.in.Read(buf)
	}
	return readFd(t.fd, buf)
}

// handle feeds one byte through the decoder and applies any completed key.
func (t *Terminal) handle(b byte) {
	a, ok := t.dec.feed(b, t.keys)
	if !ok {
		return
	}
	if err := a.Apply(t.target); err != nil {
		log.WithError(err).WithField("command", a.Command).Warn("Terminal command failed")
	}
}

// Stop ends reading and restores the terminal. Safe to call more than once.
func (t *Terminal) Stop() {
	t.stopped.Do(func() {
		close(t.stopCh)
	})
	// A blocking read only returns on the next key, so do not wait for it.
	if !t.blocking {
		<-t.done
	}
	if t.nonblockSet {
		_ = setNonblock(t.fd, false)
		t.nonblockSet = false
	}
	if t.oldState != nil {
		_ = term.Restore(t.fd, t.oldState)
		t.oldState = nil
	}
}

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1b
)

// keyDecoder turns raw bytes, including ANSI arrow sequences, into actions.
type keyDecoder struct {
	state int // 0 idle, 1 after ESC, 2 after ESC [
}

func (d *keyDecoder) feed(b byte, keys Keymap) (Action, bool) {
	switch d.state {
	case 1:
		if b == '[' || b == 'O' {
			d.state = 2
			return Action{}, false
		}
		d.state = 0
	case 2:
		d.state = 0
		switch b {
		case 'A':
			return Do(IntensityUp), true
		case 'B':
			return Do(IntensityDown), true
		case 'C':
			return Do(NextFilter), true
		case 'D':
			return Do(PrevFilter), true
		}
		return Action{}, false
	}

	switch b {
	case keyEsc:
		d.state = 1
		return Action{}, false
	case keyCtrlC:
		return Do(Quit), true
	}
	return keys.Lookup(rune(b))
}
