package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightbake"
)

func main() {
	atlasSize := flag.Int("atlas", 128, "lightmap atlas size (power of two)")
	passes := flag.Int("passes", 0, "bounce pass count (0 = default)")
	budget := flag.Int("budget", 0, "texels sampled per tick (0 = default)")
	probeRes := flag.Int("probe", 0, "hemicube face resolution (0 = default)")
	bakeTime := flag.Float64("time", 0, "pose time for animated items, seconds")
	outEXR := flag.String("out", "lightmap.exr", "output EXR path")
	outPNG := flag.String("png", "", "optional tonemapped PNG path")
	pngScale := flag.Int("png-scale", 1, "nearest-neighbor upscale factor for the PNG")
	preview := flag.Bool("preview", false, "show the lightmap in a window while baking")
	factorsArg := flag.String("factors", "", "comma-separated factor=multiplier overrides, e.g. lamps=1,sun=0.5")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lightbake [options] [scene.gltf]\n\n")
		fmt.Fprintf(os.Stderr, "Bake a lightmap for the given glTF scene. Without a scene argument a\n")
		fmt.Fprintf(os.Stderr, "built-in demo scene is baked instead. Atlas UVs are read from the\n")
		fmt.Fprintf(os.Stderr, "TEXCOORD_1 channel; meshes without one are laid out automatically.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := lightbake.NewDefaultLogger("lightbake", *verbose)

	stage := lightbake.NewWorkbenchStage(logger)
	var err error
	if flag.NArg() > 0 {
		err = stageGLTF(stage, flag.Arg(0), *atlasSize)
	} else {
		err = stageDemoScene(stage)
	}
	if err != nil {
		log.Fatalf("stage scene: %v", err)
	}

	cfg := lightbake.Config{
		AtlasWidth:      *atlasSize,
		AtlasHeight:     *atlasSize,
		ProbeResolution: *probeRes,
		PassCount:       *passes,
		TexelBudget:     *budget,
		Time:            float32(*bakeTime),
	}
	baker := lightbake.NewBaker(cfg, lightbake.NewSoftwareDevice(logger), logger)
	if err := baker.Bake(stage); err != nil {
		log.Fatalf("bake: %v", err)
	}
	for factor, mult := range parseFactors(*factorsArg) {
		baker.SetFactorMultiplier(factor, mult)
	}

	var window *lightbake.Preview
	if *preview {
		side := *atlasSize
		for side < 512 {
			side *= 2
		}
		window = lightbake.NewPreview(side, side, "lightbake")
		defer window.Close()
	}

	for !baker.Complete() {
		if err := baker.Tick(); err != nil {
			log.Fatalf("bake: %v", err)
		}
		if window != nil {
			if window.ShouldClose() {
				return
			}
			window.Frame(baker.Result())
		}
	}

	result := baker.Result()
	if err := lightbake.ExportEXR(*outEXR, result); err != nil {
		log.Fatalf("export: %v", err)
	}
	logger.Infof("wrote %s", *outEXR)

	if *outPNG != "" {
		if err := lightbake.ExportPNG(*outPNG, result, *pngScale); err != nil {
			log.Fatalf("export: %v", err)
		}
		logger.Infof("wrote %s", *outPNG)
	}

	// Keep the window up after the bake so the result can be inspected.
	if window != nil {
		for !window.ShouldClose() {
			window.Frame(result)
		}
	}
}

func stageGLTF(stage *lightbake.WorkbenchStage, path string, atlasSize int) error {
	items, err := lightbake.LoadGLTF(path)
	if err != nil {
		return err
	}

	var needLayout []*lightbake.MeshData
	for _, it := range items {
		if len(it.Mesh.AtlasUVs) == 0 {
			needLayout = append(needLayout, it.Mesh)
		}
	}
	if len(needLayout) > 0 {
		if err := lightbake.LayoutAtlas(needLayout, atlasSize, atlasSize, 0); err != nil {
			return err
		}
	}

	for _, it := range items {
		_, err := stage.RegisterItem(lightbake.SceneItem{
			Mesh:          it.Mesh,
			Material:      it.Material,
			Transform:     it.Transform,
			NeedsLightmap: true,
		})
		if err != nil {
			return fmt.Errorf("item %s: %w", it.Name, err)
		}
	}

	// glTF punctual lights are not imported; give the scene a key light.
	_, err = stage.RegisterLight(lightbake.Light{
		Kind:      lightbake.LightKindDirectional,
		Direction: mgl32.Vec3{-0.4, -1, -0.3},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
	})
	return err
}

// stageDemoScene builds a floor quad lit by a warm spot and a cool
// directional light on its own "sky" factor, so multiplier overrides have
// something to act on.
func stageDemoScene(stage *lightbake.WorkbenchStage) error {
	floor := lightbake.NewQuadMesh(4, mgl32.Vec2{0.05, 0.05}, mgl32.Vec2{0.95, 0.95})
	_, err := stage.RegisterItem(lightbake.SceneItem{
		Mesh:          floor,
		Material:      lightbake.Material{AlbedoColor: mgl32.Vec3{0.8, 0.8, 0.8}},
		NeedsLightmap: true,
	})
	if err != nil {
		return err
	}

	_, err = stage.RegisterLight(lightbake.Light{
		Kind:      lightbake.LightKindSpot,
		Position:  mgl32.Vec3{0, 3, 0},
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 0.85, 0.7},
		Intensity: 8,
		ConeAngle: 60,
	})
	if err != nil {
		return err
	}

	_, err = stage.RegisterLight(lightbake.Light{
		Kind:      lightbake.LightKindDirectional,
		Direction: mgl32.Vec3{-0.3, -1, -0.2},
		Color:     mgl32.Vec3{0.6, 0.7, 1},
		Intensity: 0.5,
		Factor:    "sky",
	})
	return err
}

func parseFactors(arg string) map[string]float32 {
	out := make(map[string]float32)
	if arg == "" {
		return out
	}
	for _, pair := range strings.Split(arg, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		var m float32
		if _, err := fmt.Sscanf(value, "%g", &m); err != nil {
			continue
		}
		out[name] = m
	}
	return out
}
