package filter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Entry binds a filter selector to the GLSL function evaluated in the fragment
// stage and to its CPU reference.
type Entry struct {
	Type Type
	// Func is the GLSL function name; it takes and returns a vec4.
	Func string
	// GLSL is the function definition. It must compile as both ESSL 3.00 and GLSL 4.10.
	GLSL string
	Ref  func(mgl32.Vec4) mgl32.Vec4
}

// Table is the ordered set of filters compiled into one fragment shader.
// Identity is implicit and never needs an entry.
type Table []Entry

// DefaultTable returns the built-in filters.
func DefaultTable() Table {
	return Table{
		{
			Type: Grayscale,
			Func: "grayscale",
			GLSL: `vec4 grayscale(vec4 color) {
    float gray = dot(color.rgb, vec3(0.299, 0.587, 0.114));
    return vec4(vec3(gray), color.a);
}`,
			Ref: grayscale,
		},
		{
			Type: Sepia,
			Func: "sepia",
			GLSL: `vec4 sepia(vec4 color) {
    float r = dot(color.rgb, vec3(0.393, 0.769, 0.189));
    float g = dot(color.rgb, vec3(0.349, 0.686, 0.168));
    float b = dot(color.rgb, vec3(0.272, 0.534, 0.131));
    return vec4(r, g, b, color.a);
}`,
			Ref: sepia,
		},
		{
			Type: WarmShift,
			Func: "warmShift",
			GLSL: `vec4 warmShift(vec4 color) {
    color.r = min(color.r + 0.1, 1.0);
    color.g = min(color.g + 0.05, 1.0);
    return color;
}`,
			Ref: warmShift,
		},
		{
			Type: CoolShift,
			Func: "coolShift",
			GLSL: `vec4 coolShift(vec4 color) {
    color.b = min(color.b + 0.1, 1.0);
    return color;
}`,
			Ref: coolShift,
		},
		{
			Type: Invert,
			Func: "invertColor",
			GLSL: `vec4 invertColor(vec4 color) {
    return vec4(1.0 - color.rgb, color.a);
}`,
			Ref: invert,
		},
		{
			Type: Posterize2,
			Func: "posterize2",
			GLSL: `vec4 posterize2(vec4 color) {
    float gray = dot(color.rgb, vec3(0.299, 0.587, 0.114));
    return vec4(vec3(step(0.5, gray)), color.a);
}`,
			Ref: posterize2,
		},
	}
}

// Lookup returns the entry for t.
func (tb Table) Lookup(t Type) (Entry, bool) {
	for _, e := range tb {
		if e.Type == t {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate rejects tables with unknown, duplicated or incomplete entries.
func (tb Table) Validate() error {
	seen := make(map[Type]bool, len(tb))
	funcs := make(map[string]bool, len(tb))
	for i, e := range tb {
		switch {
		case !e.Type.Valid() || e.Type == Identity:
			return fmt.Errorf("filter table entry %d: invalid selector %d", i, int32(e.Type))
		case seen[e.Type]:
			return fmt.Errorf("filter table entry %d: duplicate filter %s", i, e.Type)
		case e.Func == "" || e.GLSL == "":
			return fmt.Errorf("filter table entry %d: %s has no GLSL function", i, e.Type)
		case funcs[e.Func]:
			return fmt.Errorf("filter table entry %d: function name %q reused", i, e.Func)
		}
		seen[e.Type] = true
		funcs[e.Func] = true
	}
	return nil
}
