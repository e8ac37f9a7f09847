package filter

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var sampleColors = []mgl32.Vec4{
	{0, 0, 0, 1},
	{1, 1, 1, 1},
	{1, 0, 0, 1},
	{0, 1, 0, 0.5},
	{0, 0, 1, 0},
	{0.25, 0.5, 0.75, 1},
	{0.5, 0.5, 0.5, 1},
	{0.95, 0.97, 0.92, 0.3},
	{0.123, 0.456, 0.789, 0.1},
}

func near(a, b mgl32.Vec4, eps float32) bool {
	for i := range a {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func TestBlendZeroIntensityIsExact(t *testing.T) {
	for _, typ := range Types() {
		for _, c := range sampleColors {
			if got := Blend(c, typ, 0); got != c {
				t.Errorf("Blend(%v, %s, 0) = %v, want %v", c, typ, got, c)
			}
		}
	}
}

func TestBlendIdentityIsExact(t *testing.T) {
	for _, i := range []float32{0, 0.1, 0.5, 0.999, 1, 7} {
		for _, c := range sampleColors {
			if got := Blend(c, Identity, i); got != c {
				t.Errorf("Blend(%v, identity, %v) = %v", c, i, got)
			}
		}
	}
}

func TestInvertIsSelfInverse(t *testing.T) {
	for _, c := range sampleColors {
		got := Apply(Invert, Apply(Invert, c))
		if !near(got, c, 1e-6) {
			t.Errorf("invert(invert(%v)) = %v", c, got)
		}
	}
}

func TestGrayscaleChannelsEqual(t *testing.T) {
	for _, c := range sampleColors {
		got := Apply(Grayscale, c)
		if got.X() != got.Y() || got.Y() != got.Z() {
			t.Errorf("grayscale(%v) = %v, channels differ", c, got)
		}
		if got.W() != c.W() {
			t.Errorf("grayscale(%v) alpha = %v", c, got.W())
		}
	}
}

func TestPosterize2IsBinary(t *testing.T) {
	for _, c := range sampleColors {
		got := Apply(Posterize2, c)
		for i := 0; i < 3; i++ {
			if got[i] != 0 && got[i] != 1 {
				t.Errorf("posterize2(%v)[%d] = %v", c, i, got[i])
			}
		}
	}
}

func TestPosterize2BlendsLinearly(t *testing.T) {
	got := Blend(mgl32.Vec4{1, 1, 1, 1}, Posterize2, 0.5)
	if got != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Fatalf("white stays white, got %v", got)
	}
	got = Blend(mgl32.Vec4{0.4, 0.4, 0.4, 1}, Posterize2, 0.5)
	if !near(got, mgl32.Vec4{0.2, 0.2, 0.2, 1}, 1e-6) {
		t.Fatalf("half-strength posterize = %v, want non-binary 0.2", got)
	}
}

func TestSepiaHalfIntensity(t *testing.T) {
	got := Blend(mgl32.Vec4{1, 0, 0, 1}, Sepia, 0.5)
	want := mgl32.Vec4{0.6965, 0.1745, 0.136, 1}
	if !near(got, want, 1e-5) {
		t.Fatalf("sepia@0.5 = %v, want %v", got, want)
	}
}

func TestTransforms(t *testing.T) {
	tests := []struct {
		typ  Type
		in   mgl32.Vec4
		want mgl32.Vec4
	}{
		{Grayscale, mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec4{0.299, 0.299, 0.299, 1}},
		{WarmShift, mgl32.Vec4{0.5, 0.5, 0.5, 1}, mgl32.Vec4{0.6, 0.55, 0.5, 1}},
		{WarmShift, mgl32.Vec4{0.95, 0.98, 0.1, 1}, mgl32.Vec4{1, 1, 0.1, 1}},
		{CoolShift, mgl32.Vec4{0.2, 0.3, 0.4, 1}, mgl32.Vec4{0.2, 0.3, 0.5, 1}},
		{CoolShift, mgl32.Vec4{0.2, 0.3, 0.95, 1}, mgl32.Vec4{0.2, 0.3, 1, 1}},
		{Invert, mgl32.Vec4{0.25, 0.5, 1, 0.5}, mgl32.Vec4{0.75, 0.5, 0, 0.5}},
		{Posterize2, mgl32.Vec4{0.6, 0.6, 0.6, 1}, mgl32.Vec4{1, 1, 1, 1}},
		{Posterize2, mgl32.Vec4{0.4, 0.4, 0.4, 0.2}, mgl32.Vec4{0, 0, 0, 0.2}},
		{Identity, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}},
		{Type(42), mgl32.Vec4{0.1, 0.2, 0.3, 0.4}, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}},
	}
	for _, tc := range tests {
		t.Run(tc.typ.String(), func(t *testing.T) {
			if got := Apply(tc.typ, tc.in); !near(got, tc.want, 1e-6) {
				t.Errorf("Apply(%s, %v) = %v, want %v", tc.typ, tc.in, got, tc.want)
			}
		})
	}
}

func TestClampIntensity(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{1.5, 1},
		{-0.2, 0},
		{0.3, 0.3},
		{0, 0},
		{1, 1},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 1},
		{float32(math.Inf(-1)), 0},
	}
	for _, tc := range tests {
		if got := ClampIntensity(tc.in); got != tc.want {
			t.Errorf("ClampIntensity(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"sepia", Sepia, false},
		{" Grayscale ", Grayscale, false},
		{"grey", Grayscale, false},
		{"none", Identity, false},
		{"blackwhite", Posterize2, false},
		{"6", Posterize2, false},
		{"7", Identity, true},
		{"-1", Identity, true},
		{"vignette", Identity, true},
	}
	for _, tc := range tests {
		got, err := ParseType(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseType(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = %s, %v", typ.String(), got, err)
		}
	}
}

func TestNextPrevWrap(t *testing.T) {
	if got := Posterize2.Next(); got != Identity {
		t.Errorf("Posterize2.Next() = %s", got)
	}
	if got := Identity.Prev(); got != Posterize2 {
		t.Errorf("Identity.Prev() = %s", got)
	}
	if got := Type(99).Next(); got != Grayscale {
		t.Errorf("invalid.Next() = %s", got)
	}
}

func TestNewStateNormalizes(t *testing.T) {
	s := NewState(Type(12), 3)
	if s.Type != Identity || s.Intensity != 1 {
		t.Fatalf("NewState(12, 3) = %v", s)
	}
	s = s.WithType(Invert).WithIntensity(-1)
	if s.Type != Invert || s.Intensity != 0 {
		t.Fatalf("WithType/WithIntensity = %v", s)
	}
}

func TestDefaultTable(t *testing.T) {
	tb := DefaultTable()
	if err := tb.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, typ := range Types() {
		e, ok := tb.Lookup(typ)
		if typ == Identity {
			if ok {
				t.Errorf("identity has a table entry")
			}
			continue
		}
		if !ok {
			t.Fatalf("missing entry for %s", typ)
		}
		for _, c := range sampleColors {
			if got, want := e.Ref(c), Apply(typ, c); got != want {
				t.Errorf("%s reference = %v, Apply = %v", typ, got, want)
			}
		}
	}
}

func TestTableValidateRejects(t *testing.T) {
	tests := map[string]Table{
		"identity":  {{Type: Identity, Func: "id", GLSL: "x"}},
		"duplicate": {DefaultTable()[0], DefaultTable()[0]},
		"no glsl":   {{Type: Sepia, Func: "sepia"}},
		"reused": {
			{Type: Sepia, Func: "f", GLSL: "x"},
			{Type: Invert, Func: "f", GLSL: "y"},
		},
	}
	for name, tb := range tests {
		if err := tb.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil", name)
		}
	}
}
