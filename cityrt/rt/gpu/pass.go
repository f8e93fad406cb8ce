package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	instancer "github.com/gekko3d/instancer"
	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/gekko3d/instancer/cityrt/rt/shaders"
)

const DepthFormat = wgpu.TextureFormatDepth24Plus

// DrawCall is one indexed draw of a mesh. Instances is nil for the static variant.
type DrawCall struct {
	Mesh      *MeshBuffers
	Instances *wgpu.Buffer
	Count     uint32
}

// DrawList is drawn in order within a single render pass.
type DrawList []DrawCall

// InstancedPass is the render pipeline of one shader variant together with
// its uniform buffers and bind groups.
type InstancedPass struct {
	Variant  core.Variant
	Pipeline *wgpu.RenderPipeline

	CameraBuffer     *wgpu.Buffer
	CameraBindGroup  *wgpu.BindGroup
	PaletteBuffer    *wgpu.Buffer
	PaletteBindGroup *wgpu.BindGroup

	device *wgpu.Device
	queue  *wgpu.Queue
	logger instancer.Logger
}

func NewInstancedPass(device *wgpu.Device, variant core.Variant, format wgpu.TextureFormat, logger instancer.Logger) (*InstancedPass, error) {
	logger = instancer.OrNop(logger)

	layouts, err := LayoutsFor(variant)
	if err != nil {
		return nil, err
	}
	if err := ValidateLayouts(variant, layouts); err != nil {
		return nil, err
	}
	bindings, err := BindingsFor(variant)
	if err != nil {
		return nil, err
	}
	src, err := shaders.Source(variant)
	if err != nil {
		return nil, err
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          variant.String() + " shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", variant, err)
	}
	defer shaderModule.Release()

	// one bind group per binding, group index == position in bindings
	bgls := make([]*wgpu.BindGroupLayout, 0, len(bindings))
	defer func() {
		for _, bgl := range bgls {
			bgl.Release()
		}
	}()
	for _, b := range bindings {
		bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   b.Label + " BGL",
			Entries: []wgpu.BindGroupLayoutEntry{b.LayoutEntry()},
		})
		if err != nil {
			return nil, err
		}
		bgls = append(bgls, bgl)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            variant.String() + " pipeline layout",
		BindGroupLayouts: bgls,
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  variant.String() + " pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: shaders.VertexEntry,
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: shaders.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     nil,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone, // billboards are single-sided quads
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", variant, err)
	}

	p := &InstancedPass{
		Variant:  variant,
		Pipeline: pipeline,
		device:   device,
		queue:    device.GetQueue(),
		logger:   logger,
	}
	for i, b := range bindings {
		buf, bg, err := p.createUniform(b, bgls[i])
		if err != nil {
			p.Release()
			return nil, err
		}
		switch b {
		case CameraBinding:
			p.CameraBuffer, p.CameraBindGroup = buf, bg
		case PaletteBinding:
			p.PaletteBuffer, p.PaletteBindGroup = buf, bg
		}
	}
	if p.PaletteBuffer != nil {
		if err := p.UpdatePalette(core.DefaultPalette()); err != nil {
			p.Release()
			return nil, err
		}
	}
	logger.Infof("built %s pipeline: %d vertex buffer slots, %d bind groups", variant, len(layouts), len(bindings))
	return p, nil
}

func (p *InstancedPass) createUniform(b Binding, layout *wgpu.BindGroupLayout) (*wgpu.Buffer, *wgpu.BindGroup, error) {
	buf, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.Label + " Uniform Buffer",
		Size:  UniformBlockSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, err
	}
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.Label + " BG",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: b.Binding,
				Buffer:  buf,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		buf.Release()
		return nil, nil, err
	}
	return buf, bg, nil
}

func (p *InstancedPass) UpdateCamera(u core.CameraUniform) {
	p.queue.WriteBuffer(p.CameraBuffer, 0, CameraBytes(u))
}

func (p *InstancedPass) UpdatePalette(pal core.Palette) error {
	if p.PaletteBuffer == nil {
		return fmt.Errorf("%s pipeline has no palette binding", p.Variant)
	}
	p.queue.WriteBuffer(p.PaletteBuffer, 0, PaletteBytes(pal))
	return nil
}

// Draw records every call of list into pass. Instance data must already be
// uploaded. Instanced calls with a zero count are skipped.
func (p *InstancedPass) Draw(pass *wgpu.RenderPassEncoder, list DrawList) {
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(CameraBinding.Group, p.CameraBindGroup, nil)
	if p.PaletteBindGroup != nil {
		pass.SetBindGroup(PaletteBinding.Group, p.PaletteBindGroup, nil)
	}

	for _, call := range list {
		instances := uint32(1)
		if p.Variant.Instanced() {
			if call.Instances == nil || call.Count == 0 {
				continue
			}
			instances = call.Count
			pass.SetVertexBuffer(InstanceSlot, call.Instances, 0, call.Instances.GetSize())
		}
		pass.SetVertexBuffer(VertexSlot, call.Mesh.Vertex, 0, call.Mesh.Vertex.GetSize())
		pass.SetIndexBuffer(call.Mesh.Index, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(call.Mesh.IndexCount, instances, 0, 0, 0)
	}
}

func (p *InstancedPass) Release() {
	if p.CameraBindGroup != nil {
		p.CameraBindGroup.Release()
	}
	if p.PaletteBindGroup != nil {
		p.PaletteBindGroup.Release()
	}
	if p.CameraBuffer != nil {
		p.CameraBuffer.Release()
	}
	if p.PaletteBuffer != nil {
		p.PaletteBuffer.Release()
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}

// DepthTarget is the depth attachment sized to the surface.
type DepthTarget struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
}

func NewDepthTarget(device *wgpu.Device, width, height uint32) (*DepthTarget, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &DepthTarget{Texture: tex, View: view}, nil
}

func (d *DepthTarget) Release() {
	if d.View != nil {
		d.View.Release()
	}
	if d.Texture != nil {
		d.Texture.Release()
	}
}
