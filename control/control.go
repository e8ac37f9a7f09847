// Package control turns key presses, terminal input and Lua scripts into
// filter and source changes on a running renderer.
package control

import (
	"fmt"

	"github.com/richinsley/goshaderfilter/filter"
)

// IntensityStep is the change applied by one intensity key press.
const IntensityStep = 0.1

// Target is what the controllers drive. Every method must be safe to call from
// any goroutine.
type Target interface {
	SetFilter(t filter.Type)
	SetIntensity(v float32)
	// AdjustIntensity adds delta to the intensity as a single atomic update.
	AdjustIntensity(delta float32)
	Filter() filter.Type
	Intensity() float32
	// SwitchSource moves to the next frame source, e.g. the other camera.
	SwitchSource() error
	Quit()
}

type Command int

const (
	None Command = iota
	NextFilter
	PrevFilter
	IntensityUp
	IntensityDown
	FullIntensity
	SelectFilter
	SwitchSource
	Quit
)

func (c Command) String() string {
	switch c {
	case None:
		return "none"
	case NextFilter:
		return "next-filter"
	case PrevFilter:
		return "prev-filter"
	case IntensityUp:
		return "intensity-up"
	case IntensityDown:
		return "intensity-down"
	case FullIntensity:
		return "full-intensity"
	case SelectFilter:
		return "select-filter"
	case SwitchSource:
		return "switch-source"
	case Quit:
		return "quit"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Action is a command plus its argument.
type Action struct {
	Command Command
	Filter  filter.Type // SelectFilter only
}

// Do wraps a command without argument.
func Do(c Command) Action {
	return Action{Command: c}
}

// Select chooses filter t directly.
func Select(t filter.Type) Action {
	return Action{Command: SelectFilter, Filter: t}
}

// Apply performs a on target.
func (a Action) Apply(target Target) error {
	switch a.Command {
	case None:
	case NextFilter:
		target.SetFilter(target.Filter().Next())
	case PrevFilter:
		target.SetFilter(target.Filter().Prev())
	case IntensityUp:
		target.AdjustIntensity(IntensityStep)
	case IntensityDown:
		target.AdjustIntensity(-IntensityStep)
	case FullIntensity:
		target.SetIntensity(1)
	case SelectFilter:
		target.SetFilter(a.Filter)
	case SwitchSource:
		return target.SwitchSource()
	case Quit:
		target.Quit()
	default:
		return fmt.Errorf("unknown command %v", a.Command)
	}
	return nil
}
