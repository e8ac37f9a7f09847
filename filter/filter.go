// Package filter defines the closed set of colour filters, their reference
// per-pixel transforms and the intensity blend shared by the GPU and CPU paths.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type selects the active filter. Its integer value is what the fragment
// shader receives in uFilterType.
type Type int32

const (
	Identity Type = iota
	Grayscale
	Sepia
	WarmShift
	CoolShift
	Invert
	Posterize2

	numTypes
)

var typeNames = [numTypes]string{
	Identity:   "identity",
	Grayscale:  "grayscale",
	Sepia:      "sepia",
	WarmShift:  "warm",
	CoolShift:  "cool",
	Invert:     "invert",
	Posterize2: "posterize",
}

// aliases accepted by ParseType in addition to the canonical names.
var typeAliases = map[string]Type{
	"none":        Identity,
	"original":    Identity,
	"gray":        Grayscale,
	"grey":        Grayscale,
	"greyscale":   Grayscale,
	"warmshift":   WarmShift,
	"coolshift":   CoolShift,
	"negative":    Invert,
	"posterize2":  Posterize2,
	"blackwhite":  Posterize2,
	"black_white": Posterize2,
}

// Types returns every filter in selector order.
func Types() []Type {
	out := make([]Type, 0, numTypes)
	for t := Identity; t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is one of the enumerated filters.
func (t Type) Valid() bool {
	return t >= Identity && t < numTypes
}

// Normalize maps out-of-range selectors to Identity.
func (t Type) Normalize() Type {
	if !t.Valid() {
		return Identity
	}
	return t
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("filter(%d)", int32(t))
	}
	return typeNames[t]
}

// Next returns the filter after t, wrapping back to Identity.
func (t Type) Next() Type {
	return (t.Normalize() + 1) % numTypes
}

// Prev returns the filter before t, wrapping to the last filter.
func (t Type) Prev() Type {
	return (t.Normalize() + numTypes - 1) % numTypes
}

// ParseType accepts a filter name, one of its aliases, or its selector number.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if key == name {
			return Type(i), nil
		}
	}
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	if n, err := strconv.Atoi(key); err == nil && Type(n).Valid() {
		return Type(n), nil
	}
	return Identity, fmt.Errorf("unknown filter %q", s)
}

// ClampIntensity limits v to [0,1]. NaN becomes 0.
func ClampIntensity(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// State is an immutable filter selection read once per draw.
type State struct {
	Type      Type
	Intensity float32
}

// DefaultState shows the unfiltered image at full strength.
var DefaultState = State{Type: Identity, Intensity: 1}

// NewState builds a State with the selector normalized and the intensity clamped.
func NewState(t Type, intensity float32) State {
	return State{Type: t.Normalize(), Intensity: ClampIntensity(intensity)}
}

// WithType returns a copy of s using filter t.
func (s State) WithType(t Type) State {
	return NewState(t, s.Intensity)
}

// WithIntensity returns a copy of s using the clamped intensity.
func (s State) WithIntensity(v float32) State {
	return NewState(s.Type, v)
}

func (s State) String() string {
	return fmt.Sprintf("%s@%.2f", s.Type, s.Intensity)
}
