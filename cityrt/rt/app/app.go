package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	instancer "github.com/gekko3d/instancer"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/gekko3d/instancer/cityrt/rt/gpu"
	"github.com/gekko3d/instancer/cityrt/rt/mesh"
	"github.com/gekko3d/instancer/cityrt/rt/scene"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// spin rate of the matrix variant's cubes, radians per second
const cubeSpin = 0.5

type App struct {
	Window        *glfw.Window
	Instance      *wgpu.Instance
	Adapter       *wgpu.Adapter
	Device        *wgpu.Device
	Queue         *wgpu.Queue
	Surface       *wgpu.Surface
	SurfaceConfig *wgpu.SurfaceConfiguration

	Config  instancer.Config
	Variant core.Variant
	Camera  *core.CameraState
	Palette core.Palette

	Library    *scene.Library
	Placements []scene.Placement
	Index      *scene.SpatialIndex
	Batcher    *scene.Batcher

	Pass      *gpu.InstancedPass
	Depth     *gpu.DepthTarget
	Meshes    map[scene.BatchKey]*gpu.MeshBuffers
	Instances *gpu.InstanceBuffers[scene.BatchKey]
	drawList  gpu.DrawList

	Profiler *Profiler
	logger   instancer.Logger

	MouseCaptured bool
	cursorX       float64
	cursorY       float64
	cursorValid   bool

	LastTime       float64
	LastRenderTime float64
	yaw            float32
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

func NewApp(window *glfw.Window, cfg instancer.Config, logger instancer.Logger) (*App, error) {
	variant, err := cfg.PipelineVariant()
	if err != nil {
		return nil, err
	}
	lib := scene.DefaultLibrary()
	placements := scene.Grid(cfg.Grid.NX, cfg.Grid.NZ, cfg.Grid.Spacing, lib)
	lod := scene.LODConfig{LOD0: cfg.LOD.LOD0, LOD1: cfg.LOD.LOD1, Cull: cfg.LOD.Cull}
	logger = instancer.OrNop(logger)

	return &App{
		Window:     window,
		Config:     cfg,
		Variant:    variant,
		Camera:     core.NewCameraState(),
		Palette:    cfg.CorePalette(),
		Library:    lib,
		Placements: placements,
		Index:      scene.NewSpatialIndex(placements, cfg.Grid.Spacing*4),
		Batcher:    scene.NewBatcher(lib, lod, logger),
		Meshes:     make(map[scene.BatchKey]*gpu.MeshBuffers),
		Profiler:   NewProfiler(),
		logger:     logger,
	}, nil
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("surface reports no texture formats")
	}
	a.SurfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   pickAlphaMode(caps.AlphaModes),
	}
	a.Surface.Configure(adapter, a.Device, a.SurfaceConfig)

	a.Pass, err = gpu.NewInstancedPass(a.Device, a.Variant, a.SurfaceConfig.Format, a.logger)
	if err != nil {
		return err
	}
	if a.Variant == core.VariantPalette {
		if err := a.Pass.UpdatePalette(a.Palette); err != nil {
			return err
		}
	}
	a.Instances = gpu.NewInstanceBuffers[scene.BatchKey](a.Device, "instances", a.logger)

	if err := a.setupMeshes(); err != nil {
		return err
	}
	if err := a.setupDepth(width, height); err != nil {
		return err
	}

	a.logger.Infof("%s variant, %d placements, %d meshes, surface %dx%d %v",
		a.Variant, len(a.Placements), len(a.Meshes), width, height, a.SurfaceConfig.Format)
	a.LastTime = glfw.GetTime()
	return nil
}

func (a *App) addMesh(key scene.BatchKey, mb *gpu.MeshBuffers, err error) error {
	if err != nil {
		return fmt.Errorf("mesh %v: %w", key, err)
	}
	a.Meshes[key] = mb
	return nil
}

func (a *App) setupMeshes() error {
	if a.Variant != core.VariantPalette {
		m := colorMesh(a.Variant)
		mb, err := gpu.NewMeshBuffers(a.Device, m.Name, m.Vertices, m.Indices)
		return a.addMesh(CubeKey, mb, err)
	}

	half := float32(max(a.Config.Grid.NX, a.Config.Grid.NZ))*a.Config.Grid.Spacing*0.5 + 2*a.Config.Grid.Spacing
	ground := mesh.Ground(half)
	mb, err := gpu.NewMeshBuffers(a.Device, ground.Name, ground.Vertices, ground.Indices)
	if err := a.addMesh(scene.GroundKey, mb, err); err != nil {
		return err
	}
	bill := mesh.Billboard()
	mb, err = gpu.NewMeshBuffers(a.Device, bill.Name, bill.Vertices, bill.Indices)
	if err := a.addMesh(scene.BillboardKey, mb, err); err != nil {
		return err
	}

	for _, arch := range a.Library.All() {
		h := arch.BaseHalf
		full := mesh.ForCategory(arch.Category, h)
		key := scene.BatchKey{LOD: scene.LOD0, Category: arch.Category, Archetype: arch.Index}
		mb, err := gpu.NewMeshBuffers(a.Device, arch.Name+" lod0", full.Vertices, full.Indices)
		if err := a.addMesh(key, mb, err); err != nil {
			return err
		}

		reduced := mesh.Box(h[0], h[1], h[2])
		key.LOD = scene.LOD1
		mb, err = gpu.NewMeshBuffers(a.Device, arch.Name+" lod1", reduced.Vertices, reduced.Indices)
		if err := a.addMesh(key, mb, err); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) setupDepth(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if a.Depth != nil {
		a.Depth.Release()
		a.Depth = nil
	}
	depth, err := gpu.NewDepthTarget(a.Device, uint32(w), uint32(h))
	if err != nil {
		return fmt.Errorf("depth target: %w", err)
	}
	a.Depth = depth
	return nil
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.SurfaceConfig.Width = uint32(w)
	a.SurfaceConfig.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.SurfaceConfig)
	if err := a.setupDepth(w, h); err != nil {
		a.logger.Errorf("resize to %dx%d: %v", w, h, err)
	}
}

// Look applies a cursor position while the mouse is captured.
func (a *App) Look(x, y float64) {
	if a.MouseCaptured && a.cursorValid {
		a.Camera.Look(float32(x-a.cursorX), float32(y-a.cursorY))
	}
	a.cursorX, a.cursorY = x, y
	a.cursorValid = true
}

func (a *App) SetMouseCaptured(captured bool) {
	a.MouseCaptured = captured
	a.cursorValid = false
	if captured {
		a.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		a.Window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

func (a *App) axis(pos, neg glfw.Key) float32 {
	var v float32
	if a.Window.GetKey(pos) == glfw.Press {
		v++
	}
	if a.Window.GetKey(neg) == glfw.Press {
		v--
	}
	return v
}

// Update moves the camera, rebuilds the batches and uploads every instance
// stream the next Render draws.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	a.Camera.Move(
		a.axis(glfw.KeyW, glfw.KeyS),
		a.axis(glfw.KeyD, glfw.KeyA),
		a.axis(glfw.KeySpace, glfw.KeyLeftShift),
		dt,
	)
	a.yaw += cubeSpin * dt

	uniform := a.Camera.Uniform(aspectRatio(a.SurfaceConfig.Width, a.SurfaceConfig.Height))
	a.Pass.UpdateCamera(uniform)

	a.Profiler.Reset()
	a.drawList = a.drawList[:0]
	if a.Variant == core.VariantStatic {
		a.drawList = append(a.drawList, gpu.DrawCall{Mesh: a.Meshes[CubeKey]})
		return
	}

	a.Profiler.BeginScope("batch")
	frame := a.Batcher.BuildIndexed(a.Index, uniform.ViewProj, a.Camera.Position)
	var (
		batches []PackedBatch
		err     error
	)
	if a.Variant == core.VariantPalette {
		batches, err = PackPaletteFrame(frame)
	} else {
		var cubes PackedBatch
		cubes, err = PackCubes(a.Variant, frame, a.Library, a.yaw)
		batches = []PackedBatch{cubes}
	}
	a.Profiler.EndScope("batch")
	if err != nil {
		a.logger.Errorf("pack instances: %v", err)
		return
	}
	a.Profiler.SetCount("visible", frame.Visible)
	a.Profiler.SetCount("culled", frame.Culled)

	a.Profiler.BeginScope("upload")
	a.Instances.Reset()
	for _, b := range batches {
		if err := a.Instances.Upload(b.Key, b.Data, b.Count); err != nil {
			a.logger.Errorf("upload %v: %v", b.Key, err)
			continue
		}
		m, ok := a.Meshes[b.Key]
		if !ok {
			a.logger.Warnf("no mesh for batch %v", b.Key)
			continue
		}
		if call, ok := a.Instances.DrawCall(m, b.Key); ok {
			a.drawList = append(a.drawList, call)
		}
	}
	a.Profiler.EndScope("upload")
	a.Profiler.SetCount("draws", len(a.drawList))
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.logger.Errorf("GetCurrentTexture failed: %v", err)
		// lost or outdated surfaces come back after a reconfigure
		a.Surface.Configure(a.Adapter, a.Device, a.SurfaceConfig)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.logger.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	clear := a.Config.Clear
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: 1},
		}},
	}
	if a.Depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            a.Depth.View,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}

	a.Profiler.BeginScope("render")
	rPass := encoder.BeginRenderPass(desc)
	a.Pass.Draw(rPass, a.drawList)
	if err := rPass.End(); err != nil {
		a.logger.Errorf("render pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.logger.Errorf("encoder Finish failed: %v", err)
		return
	}
	defer cmd.Release()
	a.Queue.Submit(cmd)
	a.Surface.Present()
	a.Profiler.EndScope("render")

	a.tickFPS(glfw.GetTime())
}

func (a *App) tickFPS(now float64) {
	last := a.LastRenderTime
	a.LastRenderTime = now
	if last == 0 {
		return
	}
	a.FrameCount++
	a.FPSTime += now - last
	if a.FPSTime < 1.0 {
		return
	}
	a.FPS = float64(a.FrameCount) / a.FPSTime
	a.FrameCount = 0
	a.FPSTime = 0
	if a.logger.DebugEnabled() {
		a.logger.Debugf("%.1f fps: %s", a.FPS, a.Profiler)
	}
}

func (a *App) Release() {
	for k, m := range a.Meshes {
		m.Release()
		delete(a.Meshes, k)
	}
	if a.Instances != nil {
		a.Instances.Release()
	}
	if a.Depth != nil {
		a.Depth.Release()
	}
	if a.Pass != nil {
		a.Pass.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}
