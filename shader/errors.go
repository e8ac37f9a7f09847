package shader

import (
	"fmt"
	"strings"
)

// Stage names a shader stage in error reports.
type Stage string

const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
)

// CompileError reports a stage that failed to compile, with the driver's info log.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, strings.TrimSpace(e.Log))
}

// LinkError reports a program that failed to link.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link program: %s", strings.TrimSpace(e.Log))
}

// MissingUniformError means the linked program has no active slot for a name
// the host binds. Kind is "attribute" or "uniform".
type MissingUniformError struct {
	Name string
	Kind string
}

func (e *MissingUniformError) Error() string {
	return fmt.Sprintf("%s %q not found in linked program", e.Kind, e.Name)
}
