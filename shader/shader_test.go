package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/graphics"
	"github.com/richinsley/goshaderfilter/internal/gltest"
)

func testSource(t *testing.T) Source {
	t.Helper()
	fs, err := GenerateFragmentShader(filter.DefaultTable(), "sampler2D", GL410)
	if err != nil {
		t.Fatalf("GenerateFragmentShader: %v", err)
	}
	return Source{Vertex: GenerateVertexShader(GL410), Fragment: fs}
}

func TestNewProgramResolvesLayout(t *testing.T) {
	dev := gltest.New()
	p, err := NewProgram(dev, testSource(t), DefaultLayout())
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	if p.Handle() == 0 {
		t.Fatal("program handle is 0")
	}
	for _, name := range DefaultLayout().Attributes {
		if _, ok := p.Attrib(name); !ok {
			t.Errorf("attribute %s not cached", name)
		}
	}
	for _, name := range DefaultLayout().Uniforms {
		if loc := p.Uniform(name); loc < 0 {
			t.Errorf("uniform %s = %d", name, loc)
		}
	}
	if loc := p.Uniform("uUnknown"); loc != -1 {
		t.Errorf("undeclared uniform = %d, want -1", loc)
	}
	if n := dev.Live("shader"); n != 0 {
		t.Errorf("%d shader objects left after link", n)
	}
	if n := dev.Live("program"); n != 1 {
		t.Errorf("live programs = %d, want 1", n)
	}

	p.Delete()
	p.Delete()
	if n := dev.Count("DeleteProgram"); n != 1 {
		t.Errorf("DeleteProgram called %d times", n)
	}
	if p.Handle() != 0 {
		t.Errorf("handle after Delete = %d", p.Handle())
	}
}

func TestNewProgramCompileFailure(t *testing.T) {
	tests := []struct {
		kind  uint32
		stage Stage
	}{
		{graphics.VERTEX_SHADER, StageVertex},
		{graphics.FRAGMENT_SHADER, StageFragment},
	}
	for _, tc := range tests {
		t.Run(string(tc.stage), func(t *testing.T) {
			dev := gltest.New()
			dev.CompileFailures[tc.kind] = "0:3: syntax error"
			_, err := NewProgram(dev, testSource(t), DefaultLayout())
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *CompileError", err)
			}
			if ce.Stage != tc.stage || ce.Log != "0:3: syntax error" {
				t.Errorf("CompileError = %+v", ce)
			}
			if n := dev.Live("shader"); n != 0 {
				t.Errorf("%d shader objects leaked", n)
			}
			if n := dev.Count("CreateProgram"); n != 0 {
				t.Errorf("program created after compile failure")
			}
		})
	}
}

func TestNewProgramLinkFailure(t *testing.T) {
	dev := gltest.New()
	dev.LinkFailure = "varying vTexCoord not written"
	_, err := NewProgram(dev, testSource(t), DefaultLayout())
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LinkError", err)
	}
	if n := dev.Live("program"); n != 0 {
		t.Errorf("%d programs leaked", n)
	}
	if n := dev.Live("shader"); n != 0 {
		t.Errorf("%d shaders leaked", n)
	}
}

func TestNewProgramMissingSlot(t *testing.T) {
	tests := []struct {
		name string
		kind string
	}{
		{AttribTexCoord, "attribute"},
		{UniformIntensity, "uniform"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := gltest.New()
			dev.Missing[tc.name] = true
			_, err := NewProgram(dev, testSource(t), DefaultLayout())
			var me *MissingUniformError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v, want *MissingUniformError", err)
			}
			if me.Name != tc.name || me.Kind != tc.kind {
				t.Errorf("MissingUniformError = %+v", me)
			}
			if n := dev.Live("program"); n != 0 {
				t.Errorf("%d programs leaked", n)
			}
		})
	}
}

func TestNewProgramUsesMappedNames(t *testing.T) {
	dev := gltest.New()
	src := testSource(t)
	src.Names = map[string]string{UniformIntensity: "_uuIntensity"}
	dev.Missing[UniformIntensity] = true

	p, err := NewProgram(dev, src, DefaultLayout())
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	if got, want := p.Uniform(UniformIntensity), dev.Location("_uuIntensity"); got != want {
		t.Errorf("uIntensity slot = %d, want %d", got, want)
	}
}

func TestGenerateFragmentShader(t *testing.T) {
	table := filter.DefaultTable()
	src, err := GenerateFragmentShader(table, "sampler2D", WebGL2)
	if err != nil {
		t.Fatalf("GenerateFragmentShader: %v", err)
	}
	for _, want := range []string{
		"#version 300 es",
		"uniform sampler2D uTexture;",
		"uniform int uFilterType;",
		"uniform float uIntensity;",
		"fragColor = mix(color, filtered, uIntensity);",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("fragment source missing %q", want)
		}
	}
	for _, e := range table {
		if !strings.Contains(src, e.Func+"(color)") {
			t.Errorf("fragment source never calls %s", e.Func)
		}
	}
	if strings.Contains(src, "GL_OES_EGL_image_external") {
		t.Error("sampler2D source enables the external image extension")
	}

	oes, err := GenerateFragmentShader(table, "samplerExternalOES", WebGL2)
	if err != nil {
		t.Fatalf("external sampler: %v", err)
	}
	if !strings.Contains(oes, "#extension GL_OES_EGL_image_external_essl3 : require") {
		t.Error("external sampler source does not enable the extension")
	}
}

func TestGenerateFragmentShaderRejects(t *testing.T) {
	tests := []struct {
		name    string
		table   filter.Table
		sampler string
		dialect Dialect
	}{
		{"empty table", nil, "sampler2D", GL410},
		{"external on desktop", filter.DefaultTable(), "samplerExternalOES", GL410},
		{"unknown sampler", filter.DefaultTable(), "samplerCube", WebGL2},
		{"unknown dialect", filter.DefaultTable(), "sampler2D", Dialect(9)},
		{"invalid table", filter.Table{{Type: filter.Identity, Func: "id", GLSL: "x"}}, "sampler2D", GL410},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GenerateFragmentShader(tc.table, tc.sampler, tc.dialect); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestGenerateVertexShader(t *testing.T) {
	if src := GenerateVertexShader(GL410); !strings.HasPrefix(src, "#version 410 core") {
		t.Errorf("GL410 header: %q", src[:20])
	}
	src := GenerateVertexShader(WebGL2)
	if !strings.HasPrefix(src, "#version 300 es") {
		t.Errorf("WebGL2 header: %q", src[:20])
	}
	for _, want := range []string{"in vec2 aPosition;", "in vec4 aTexCoord;", "uniform mat4 uTransformMatrix;"} {
		if !strings.Contains(src, want) {
			t.Errorf("vertex source missing %q", want)
		}
	}
}
