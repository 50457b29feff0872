package lightbake

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/lightbake/shaders"
)

// Preview is an on-screen viewer for a lightmap while it bakes. It uploads
// the tonemapped image to a GPU texture whenever the image's version counter
// moves and blits it to the window every frame. GPU setup errors panic; on a
// machine without a usable adapter there is nothing to degrade to.
type Preview struct {
	window *glfw.Window

	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration

	pipeline *wgpu.RenderPipeline
	sampler  *wgpu.Sampler

	texture   *wgpu.Texture
	bindGroup *wgpu.BindGroup
	texWidth  int
	texHeight int

	lastVersion uint64
	staging     []byte
}

func NewPreview(width, height int, title string) *Preview {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		panic(err)
	}

	p := &Preview{window: win}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	p.surface = instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))
	p.adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: p.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	p.device, err = p.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Preview Device",
	})
	if err != nil {
		panic(err)
	}
	p.queue = p.device.GetQueue()

	caps := p.surface.GetCapabilities(p.adapter)
	p.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	p.surface.Configure(p.adapter, p.device, p.config)

	shader, err := p.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Blit Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		panic(err)
	}
	defer shader.Release()

	p.pipeline, err = p.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    p.config.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		panic(err)
	}

	p.sampler, err = p.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Preview) ShouldClose() bool {
	return p.window.ShouldClose()
}

// Frame polls window events, re-uploads the image if it changed since the
// last upload and blits it to the surface.
func (p *Preview) Frame(img *FloatImage) {
	glfw.PollEvents()

	if img != nil && (p.texture == nil || img.Version() != p.lastVersion ||
		img.Width != p.texWidth || img.Height != p.texHeight) {
		p.upload(img)
	}
	if p.bindGroup == nil {
		return
	}

	frame, err := p.surface.GetCurrentTexture()
	if err != nil {
		panic(err)
	}
	view, err := frame.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		panic(err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	p.queue.Submit(cmd)
	p.surface.Present()
}

func (p *Preview) Close() {
	p.window.Destroy()
	glfw.Terminate()
}

func (p *Preview) upload(img *FloatImage) {
	if p.texture == nil || img.Width != p.texWidth || img.Height != p.texHeight {
		p.createTexture(img.Width, img.Height)
	}

	need := img.Width * img.Height * 4
	if cap(p.staging) < need {
		p.staging = make([]byte, need)
	}
	buf := p.staging[:need:need]
	for i := 0; i < img.Width*img.Height; i++ {
		buf[i*4+0] = encodeSRGB(acesTonemap(img.Pix[i*4+0]))
		buf[i*4+1] = encodeSRGB(acesTonemap(img.Pix[i*4+1]))
		buf[i*4+2] = encodeSRGB(acesTonemap(img.Pix[i*4+2]))
		buf[i*4+3] = 255
	}

	extent := wgpu.Extent3D{
		Width:              uint32(img.Width),
		Height:             uint32(img.Height),
		DepthOrArrayLayers: 1,
	}
	err := p.queue.WriteTexture(
		p.texture.AsImageCopy(),
		buf,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(img.Width) * 4,
			RowsPerImage: uint32(img.Height),
		},
		&extent,
	)
	if err != nil {
		panic(err)
	}
	p.lastVersion = img.Version()
}

func (p *Preview) createTexture(width, height int) {
	if p.texture != nil {
		p.texture.Release()
	}
	var err error
	p.texture, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Lightmap Tex",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	view, err := p.texture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	p.bindGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		panic(err)
	}
	p.texWidth = width
	p.texHeight = height
}
