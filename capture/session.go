package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/inputs"
)

// Sink is the receiving end of a session, normally *inputs.StreamChannel.
type Sink interface {
	WaitUntilReady(ctx context.Context) error
	Deliver(f *inputs.Frame) error
}

// SessionStats counts frames pumped into the sink.
type SessionStats struct {
	Delivered uint64
	Rejected  uint64
	Switches  uint64
}

// Session pumps one producer at a time into a sink. Switching producers keeps
// the same sink, so the renderer never sees a new endpoint.
type Session struct {
	sink Sink

	mu       sync.Mutex
	current  Producer
	pumpDone chan struct{}
	started  bool
	stopped  bool

	delivered atomic.Uint64
	rejected  atomic.Uint64
	switches  atomic.Uint64
}

func NewSession(sink Sink) *Session {
	return &Session{sink: sink}
}

// Start blocks until the sink is ready, then starts p and pumps its frames.
// The session stops when ctx ends.
func (s *Session) Start(ctx context.Context, p Producer) error {
	if err := s.sink.WaitUntilReady(ctx); err != nil {
		return fmt.Errorf("frame source never became ready: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return fmt.Errorf("session already started")
	}
	if err := s.bindLocked(p); err != nil {
		return err
	}
	s.started = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Session) bindLocked(p Producer) error {
	frames, err := p.Start()
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", p.Name(), err)
	}
	done := make(chan struct{})
	s.current = p
	s.pumpDone = done
	go s.pump(p, frames, done)
	log.WithField("producer", p.Name()).Info("Producer started")
	return nil
}

func (s *Session) unbindLocked() {
	if s.current == nil {
		return
	}
	p := s.current
	if err := p.Stop(); err != nil {
		log.WithError(err).WithField("producer", p.Name()).Warn("Producer stop failed")
	}
	<-s.pumpDone
	s.current, s.pumpDone = nil, nil
	log.WithField("producer", p.Name()).Info("Producer stopped")
}

func (s *Session) pump(p Producer, frames <-chan *inputs.Frame, done chan<- struct{}) {
	defer close(done)
	for f := range frames {
		err := s.sink.Deliver(f)
		switch {
		case err == nil:
			s.delivered.Add(1)
		case errors.Is(err, inputs.ErrReleased):
			log.WithField("producer", p.Name()).Debug("Frame source released, stopping pump")
			go s.Stop()
			// Keep draining so the producer never blocks before Stop reaches it.
			for range frames {
			}
			return
		default:
			s.rejected.Add(1)
			log.WithError(err).WithField("producer", p.Name()).Debug("Frame rejected")
		}
	}
}

// Switch stops the running producer and binds p to the same sink. When p
// fails to start, the previous producer is restarted.
func (s *Session) Switch(p Producer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if !s.started {
		return fmt.Errorf("session not started")
	}

	prev := s.current
	s.unbindLocked()
	if err := s.bindLocked(p); err != nil {
		if prev != nil {
			if rerr := s.bindLocked(prev); rerr != nil {
				log.WithError(rerr).WithField("producer", prev.Name()).Error("Failed to restore producer")
			}
		}
		return err
	}
	s.switches.Add(1)
	return nil
}

// SwitchNext switches to the alternative source of the running producer.
func (s *Session) SwitchNext() error {
	cur, ok := s.Producer().(Switcher)
	if !ok {
		return fmt.Errorf("current source cannot switch")
	}
	next, err := cur.Next()
	if err != nil {
		return err
	}
	return s.Switch(next)
}

// Producer returns the running producer, or nil.
func (s *Session) Producer() Producer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Stop stops the running producer. Further calls are no-ops.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.unbindLocked()
	log.WithFields(log.Fields{
		"delivered": s.delivered.Load(),
		"rejected":  s.rejected.Load(),
		"switches":  s.switches.Load(),
	}).Info("Capture session stopped")
}

// Stats returns pump counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Delivered: s.delivered.Load(),
		Rejected:  s.rejected.Load(),
		Switches:  s.switches.Load(),
	}
}
