package inputs

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned by a channel after Release.
	ErrReleased = errors.New("stream channel released")
	// ErrNotReady is returned when frames arrive before the texture exists.
	ErrNotReady = errors.New("stream channel not ready")
)

// FrameUpdateError means promoting the latest frame failed. The draw that hit
// it is skipped; the channel keeps its previous frame.
type FrameUpdateError struct {
	Err error
}

func (e *FrameUpdateError) Error() string {
	return fmt.Sprintf("frame update failed: %v", e.Err)
}

func (e *FrameUpdateError) Unwrap() error {
	return e.Err
}
