package control

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richinsley/goshaderfilter/filter"
)

// Binding is one key and what it does.
type Binding struct {
	Key    rune
	Action Action
	Help   string
}

// Bindings lists the default keys. Digits select filters in table order,
// starting with 1 for identity.
func Bindings() []Binding {
	b := []Binding{
		{'n', Do(NextFilter), "next filter"},
		{'p', Do(PrevFilter), "previous filter"},
		{'=', Do(IntensityUp), "raise intensity"},
		{'+', Do(IntensityUp), "raise intensity"},
		{'-', Do(IntensityDown), "lower intensity"},
		{'f', Do(FullIntensity), "full intensity"},
		{'c', Do(SwitchSource), "switch source"},
		{'q', Do(Quit), "quit"},
	}
	for _, t := range filter.Types() {
		b = append(b, Binding{
			Key:    rune('1' + int(t)),
			Action: Select(t),
			Help:   t.String(),
		})
	}
	return b
}

// Keymap resolves keys to actions. Letters match regardless of case.
type Keymap map[rune]Action

// DefaultKeymap is built from Bindings.
func DefaultKeymap() Keymap {
	m := make(Keymap)
	for _, b := range Bindings() {
		m[b.Key] = b.Action
	}
	return m
}

// Lookup returns the action bound to r.
func (m Keymap) Lookup(r rune) (Action, bool) {
	if a, ok := m[r]; ok {
		return a, true
	}
	if r >= 'A' && r <= 'Z' {
		a, ok := m[r-'A'+'a']
		return a, ok
	}
	return Action{}, false
}

// Help renders the bindings one per line, sorted by key.
func Help() string {
	bindings := Bindings()
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Key < bindings[j].Key })
	var sb strings.Builder
	for _, b := range bindings {
		fmt.Fprintf(&sb, "  %c  %s\n", b.Key, b.Help)
	}
	return sb.String()
}
