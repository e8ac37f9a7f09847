package graphics

// Device is the subset of the OpenGL API the filter pipeline issues.
// Every method must be called from the goroutine that owns the current context.
type Device interface {
	CreateShader(kind uint32) uint32
	// CompileShader uploads source, compiles it and reports the compile status
	// together with the info log when compilation failed.
	CompileShader(shader uint32, source string) (bool, string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	// LinkProgram links the program and reports the link status together with
	// the info log when linking failed.
	LinkProgram(program uint32) (bool, string)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	GetAttribLocation(program uint32, name string) int32
	GetUniformLocation(program uint32, name string) int32

	GenTexture() uint32
	DeleteTexture(texture uint32)
	ActiveTexture(unit uint32)
	BindTexture(target, texture uint32)
	TexParameteri(target, pname uint32, param int32)
	// TexImage2D (re)allocates level 0 of the bound texture as RGBA8 and uploads pixels.
	TexImage2D(target uint32, width, height int32, pixels []byte)
	// TexSubImage2D replaces the whole of level 0 of the bound texture with RGBA8 pixels.
	TexSubImage2D(target uint32, width, height int32, pixels []byte)

	GenBuffer() uint32
	DeleteBuffer(buffer uint32)
	BindBuffer(target, buffer uint32)
	BufferData(target uint32, data []float32, usage uint32)
	GenVertexArray() uint32
	DeleteVertexArray(vao uint32)
	BindVertexArray(vao uint32)
	// VertexAttribPointer describes a tightly packed float attribute in the bound ARRAY_BUFFER.
	VertexAttribPointer(index uint32, size int32)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)

	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	UniformMatrix4fv(location int32, transpose bool, m *[16]float32)

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	DrawArrays(mode uint32, first, count int32)
	GetError() uint32
}
