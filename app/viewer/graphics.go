package viewer

//OpenGL Windowing Calls and Structs. glfw owns the window and gl 4.1 core
//draws particles as round points colored by density plus the domain outline
import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"diesel.com/sph/app"
	F "diesel.com/sph/fluid"
	U "diesel.com/sph/utils"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.2/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type AppWindow struct {
	Width  int
	Height int
	Name   string
}

const particleVertexSRC = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in float density;
uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
uniform float pointSize;
uniform float targetDensity;
out vec3 color;
void main() {
	gl_Position = projection * view * model * vec4(position, 1.0);
	gl_PointSize = pointSize;
	float r = clamp(density / targetDensity - 0.5, 0.0, 1.0);
	color = mix(vec3(0.1, 0.4, 0.9), vec3(0.9, 0.2, 0.1), r);
}
` + "\x00"

const particleFragSRC = `#version 410 core
in vec3 color;
out vec4 frag;
void main() {
	vec2 c = gl_PointCoord * 2.0 - 1.0;
	if (dot(c, c) > 1.0) {
		discard;
	}
	frag = vec4(color, 0.9);
}
` + "\x00"

const lineVertexSRC = `#version 410 core
layout(location = 0) in vec3 position;
uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
void main() {
	gl_Position = projection * view * model * vec4(position, 1.0);
}
` + "\x00"

const lineFragSRC = `#version 410 core
out vec4 frag;
void main() {
	frag = vec4(0.2, 0.2, 0.2, 1.0);
}
` + "\x00"

type program struct {
	id                       uint32
	model, view, proj        int32
	pointSize, targetDensity int32
}

//Viewer - window, GL programs and the particle buffers
type Viewer struct {
	window *glfw.Window
	cam    *U.OrbitCamera

	particles, lines program
	vao, vbo         [3]uint32 //particle positions, particle densities, outline

	model, proj   mgl32.Mat4
	targetDensity float32
	pointSize     float32

	positions []float32
	densities []float32
	count     int32
	capacity  int
	edges     int32

	paused   bool
	dragging bool
	lastX    float64
	lastY    float64
}

// NewViewer initializes glfw and gl on the calling thread, which must stay
// locked for the life of the viewer.
func NewViewer(a AppWindow, bounds F.BoundingBox, targetDensity, radius float64) (*Viewer, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(a.Width, a.Height, a.Name, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, err
	}

	v := &Viewer{
		window:        window,
		cam:           U.NewOrbitCamera(3),
		model:         U.FitTransform(bounds.Lower, bounds.Upper),
		proj:          mgl32.Perspective(mgl32.DegToRad(45), float32(a.Width)/float32(a.Height), 0.05, 100),
		targetDensity: float32(targetDensity),
	}
	extent := bounds.Extent()
	longest := extent.Len()
	if longest <= 0 {
		longest = 1
	}
	v.pointSize = mgl32.Clamp(float32(radius/longest)*float32(a.Height)*2, 2, 32)

	if v.particles, err = newProgram(particleVertexSRC, particleFragSRC); err != nil {
		glfw.Terminate()
		return nil, err
	}
	v.particles.pointSize = gl.GetUniformLocation(v.particles.id, gl.Str("pointSize\x00"))
	v.particles.targetDensity = gl.GetUniformLocation(v.particles.id, gl.Str("targetDensity\x00"))
	if v.lines, err = newProgram(lineVertexSRC, lineFragSRC); err != nil {
		glfw.Terminate()
		return nil, err
	}

	v.makeVAO(U.BoxEdges(bounds.Lower, bounds.Upper))
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	window.SetKeyCallback(v.processInput)
	window.SetMouseButtonCallback(v.processMouse)
	window.SetCursorPosCallback(v.processCursor)
	window.SetScrollCallback(v.processScroll)
	return v, nil
}

func newProgram(vertexSRC, fragSRC string) (program, error) {
	vtx, err := compileShader(vertexSRC, gl.VERTEX_SHADER)
	if err != nil {
		return program{}, err
	}
	frg, err := compileShader(fragSRC, gl.FRAGMENT_SHADER)
	if err != nil {
		return program{}, err
	}
	id := gl.CreateProgram()
	gl.AttachShader(id, vtx)
	gl.AttachShader(id, frg)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		return program{}, fmt.Errorf("GLSL program failed to link: %v", log)
	}
	gl.DeleteShader(vtx)
	gl.DeleteShader(frg)

	return program{
		id:    id,
		model: gl.GetUniformLocation(id, gl.Str("model\x00")),
		view:  gl.GetUniformLocation(id, gl.Str("view\x00")),
		proj:  gl.GetUniformLocation(id, gl.Str("projection\x00")),
	}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("GLSL Shader failed to compile\n: %v", log)
	}
	return shader, nil
}

//Particle VAO reads positions from vbo 0 and densities from vbo 1, the outline
//VAO reads line vertexes from vbo 2
func (v *Viewer) makeVAO(edges []float32) {
	gl.GenBuffers(3, &v.vbo[0])
	gl.GenVertexArrays(2, &v.vao[0])

	gl.BindVertexArray(v.vao[0])
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[0])
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[1])
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 1, gl.FLOAT, false, 0, nil)

	gl.BindVertexArray(v.vao[1])
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[2])
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(edges), gl.Ptr(edges), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)
	v.edges = int32(len(edges) / 3)
}

//Upload copies a frame into the particle buffers, growing them as needed
func (v *Viewer) Upload(snap *F.Snapshot) {
	v.positions = U.TransferPositionData(v.positions, snap.Positions)
	v.densities = U.TransferScalarData(v.densities, snap.Densities)
	n := len(snap.Positions)
	v.count = int32(n)
	if n == 0 {
		return
	}

	if n > v.capacity {
		v.capacity = n + n/4
		gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[0])
		gl.BufferData(gl.ARRAY_BUFFER, 4*3*v.capacity, nil, gl.DYNAMIC_DRAW)
		gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[1])
		gl.BufferData(gl.ARRAY_BUFFER, 4*v.capacity, nil, gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[0])
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, 4*len(v.positions), gl.Ptr(v.positions))
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo[1])
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, 4*len(v.densities), gl.Ptr(v.densities))
}

func (v *Viewer) setMatrices(p program) {
	view := v.cam.View()
	gl.UniformMatrix4fv(p.model, 1, false, &v.model[0])
	gl.UniformMatrix4fv(p.view, 1, false, &view[0])
	gl.UniformMatrix4fv(p.proj, 1, false, &v.proj[0])
}

func (v *Viewer) Draw() {
	gl.ClearColor(0.9, 0.9, 0.9, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(v.lines.id)
	v.setMatrices(v.lines)
	gl.BindVertexArray(v.vao[1])
	gl.DrawArrays(gl.LINES, 0, v.edges)

	if v.count > 0 {
		gl.UseProgram(v.particles.id)
		v.setMatrices(v.particles)
		gl.Uniform1f(v.particles.pointSize, v.pointSize)
		gl.Uniform1f(v.particles.targetDensity, v.targetDensity)
		gl.BindVertexArray(v.vao[0])
		gl.DrawArrays(gl.POINTS, 0, v.count)
	}

	v.window.SwapBuffers()
}

func (v *Viewer) ShouldClose() bool {
	return v.window.ShouldClose()
}

func (v *Viewer) Close() {
	gl.DeleteBuffers(3, &v.vbo[0])
	gl.DeleteVertexArrays(2, &v.vao[0])
	v.window.Destroy()
	glfw.Terminate()
}

func (v *Viewer) processInput(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	step := float32(0.05)
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeySpace:
		if action == glfw.Press {
			v.paused = !v.paused
		}
	case glfw.KeyA, glfw.KeyLeft:
		v.cam.Rotate(-step, 0)
	case glfw.KeyD, glfw.KeyRight:
		v.cam.Rotate(step, 0)
	case glfw.KeyW, glfw.KeyUp:
		v.cam.Rotate(0, step)
	case glfw.KeyS, glfw.KeyDown:
		v.cam.Rotate(0, -step)
	}
}

func (v *Viewer) processMouse(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	v.dragging = action == glfw.Press
	if v.dragging {
		v.lastX, v.lastY = w.GetCursorPos()
	}
}

func (v *Viewer) processCursor(w *glfw.Window, xPos float64, yPos float64) {
	if !v.dragging {
		return
	}
	v.cam.Rotate(float32(v.lastX-xPos)/200, float32(yPos-v.lastY)/200)
	v.lastX, v.lastY = xPos, yPos
}

func (v *Viewer) processScroll(w *glfw.Window, xOff float64, yOff float64) {
	v.cam.Zoom(float32(1 - 0.1*yOff))
}

//Run shows sim in a window, stepping one frame per frame interval of wall
//time until the window closes or ctx is done. Space pauses
func Run(ctx context.Context, sim *app.Simulation, a AppWindow, bounds F.BoundingBox) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	params := sim.Solver.Parameters()
	v, err := NewViewer(a, bounds, params.TargetDensity, sim.Solver.Data().Radius())
	if err != nil {
		return fmt.Errorf("Could not initiate OpenGL context window: %w", err)
	}
	defer v.Close()

	snap := sim.Solver.Snapshot()
	v.Upload(&snap)
	timer := app.NewAnimationTimer(sim.Config.FPS, time.Now())
	frames := 0
	for !v.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		glfw.PollEvents()
		if !v.paused && timer.Due(time.Now()) && (sim.Config.Frames == 0 || frames < sim.Config.Frames) {
			next, err := sim.Step(ctx)
			if err != nil {
				return err
			}
			frames++
			v.Upload(next)
		}
		v.Draw()
	}
	return nil
}
