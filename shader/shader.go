package shader

import (
	"fmt"
	"strings"

	"github.com/richinsley/goshaderfilter/filter"
)

// Names shared by the host bindings and the generated GLSL.
const (
	AttribPosition    = "aPosition"
	AttribTexCoord    = "aTexCoord"
	UniformTransform  = "uTransformMatrix"
	UniformTexture    = "uTexture"
	UniformFilterType = "uFilterType"
	UniformIntensity  = "uIntensity"
)

// Dialect selects the GLSL flavour a generator emits.
type Dialect int

const (
	// WebGL2 is the authoring dialect fed to the translator. Its output is also valid ESSL 3.00.
	WebGL2 Dialect = iota
	// GL410 is desktop GLSL 4.10 core, compiled directly when translation is disabled.
	GL410
)

func (d Dialect) String() string {
	switch d {
	case WebGL2:
		return "webgl2"
	case GL410:
		return "gl410"
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}

// ────────────────────────────────── Vertex ──────────────────────────────────

const vertexShaderBody = `in vec2 aPosition;
in vec4 aTexCoord;
uniform mat4 uTransformMatrix;
out vec2 vTexCoord;

void main() {
    vTexCoord = (uTransformMatrix * aTexCoord).xy;
    gl_Position = vec4(aPosition, 0.0, 1.0);
}
`

// GenerateVertexShader returns the quad vertex stage. It maps the
// texture coordinate through uTransformMatrix before it is interpolated.
func GenerateVertexShader(d Dialect) string {
	if d == GL410 {
		return "#version 410 core\n" + vertexShaderBody
	}
	return "#version 300 es\nprecision highp float;\n" + vertexShaderBody
}

// ───────────────────────────────── Fragment ─────────────────────────────────

// GenerateFragmentShader builds the filter fragment stage: one function per
// table entry, a uFilterType switch, then mix(color, filtered, uIntensity).
// Unknown selectors fall through to the unfiltered colour.
func GenerateFragmentShader(table filter.Table, samplerType string, d Dialect) (string, error) {
	if len(table) == 0 {
		return "", fmt.Errorf("filter table is empty")
	}
	if err := table.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	switch d {
	case GL410:
		if samplerType != "sampler2D" {
			return "", fmt.Errorf("sampler type %q is not available in %s", samplerType, d)
		}
		b.WriteString("#version 410 core\n")
	case WebGL2:
		b.WriteString("#version 300 es\n")
		switch samplerType {
		case "sampler2D":
		case "samplerExternalOES":
			b.WriteString("#extension GL_OES_EGL_image_external_essl3 : require\n")
		default:
			return "", fmt.Errorf("unsupported sampler type %q", samplerType)
		}
		b.WriteString("precision mediump float;\n")
	default:
		return "", fmt.Errorf("unknown dialect %s", d)
	}

	fmt.Fprintf(&b, `
in vec2 vTexCoord;
out vec4 fragColor;

uniform %s uTexture;
uniform int uFilterType;
uniform float uIntensity;
`, samplerType)

	for _, e := range table {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(e.GLSL))
		b.WriteString("\n")
	}

	b.WriteString(`
void main() {
    vec4 color = texture(uTexture, vTexCoord);
    vec4 filtered = color;
`)
	for i, e := range table {
		if i == 0 {
			b.WriteString("    if")
		} else {
			b.WriteString(" else if")
		}
		fmt.Fprintf(&b, " (uFilterType == %d) {\n        filtered = %s(color);\n    }", int32(e.Type), e.Func)
	}
	b.WriteString("\n")
	b.WriteString(`
    fragColor = mix(color, filtered, uIntensity);
}
`)
	return b.String(), nil
}
