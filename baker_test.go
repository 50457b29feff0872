package lightbake

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bakeStage is a closed scene the software device can actually light: a
// floor that needs a lightmap, an emissive panel hanging above it, a warm
// spot on the base layer and a cool directional light on its own factor.
func bakeStage(t *testing.T) *WorkbenchStage {
	t.Helper()
	stage := NewWorkbenchStage(nil)

	floor := NewQuadMesh(4, mgl32.Vec2{0.05, 0.05}, mgl32.Vec2{0.45, 0.45})
	_, err := stage.RegisterItem(SceneItem{
		Mesh:          floor,
		Material:      Material{AlbedoColor: mgl32.Vec3{0.8, 0.8, 0.8}},
		NeedsLightmap: true,
	})
	require.NoError(t, err)

	panel := NewQuadMesh(4, mgl32.Vec2{0.55, 0.55}, mgl32.Vec2{0.95, 0.95})
	_, err = stage.RegisterItem(SceneItem{
		Mesh: panel,
		Material: Material{
			AlbedoColor:       mgl32.Vec3{1, 1, 1},
			EmissiveColor:     mgl32.Vec3{1, 0.9, 0.8},
			EmissiveIntensity: 2,
		},
		Transform:     mgl32.Translate3D(0, 2, 0),
		NeedsLightmap: true,
	})
	require.NoError(t, err)

	_, err = stage.RegisterLight(Light{
		Kind:      LightKindSpot,
		Position:  mgl32.Vec3{0, 3, 0},
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 5,
		ConeAngle: 90,
	})
	require.NoError(t, err)

	_, err = stage.RegisterLight(Light{
		Kind:      LightKindDirectional,
		Direction: mgl32.Vec3{-0.3, -1, -0.2},
		Color:     mgl32.Vec3{0.6, 0.7, 1},
		Intensity: 1,
		Factor:    "sky",
	})
	require.NoError(t, err)

	return stage
}

func runBake(t *testing.T, baker *Baker) {
	t.Helper()
	for i := 0; i < 10000 && !baker.Complete(); i++ {
		require.NoError(t, baker.Tick())
	}
	require.True(t, baker.Complete(), "bake did not finish within the iteration cap")
}

func TestBaker_EndToEnd(t *testing.T) {
	cfg := Config{
		AtlasWidth:      32,
		AtlasHeight:     32,
		ProbeResolution: 4,
		TexelBudget:     256,
	}
	baker := NewBaker(cfg, NewSoftwareDevice(nil), nil)
	require.NoError(t, baker.Bake(bakeStage(t)))

	runBake(t, baker)

	base := baker.Layer("")
	require.NotNil(t, base)
	sky := baker.Layer("sky")
	require.NotNil(t, sky, "the sky-factor light must get its own layer")
	assert.Nil(t, baker.Layer("no-such-factor"))

	// The floor chart must have picked up light: the emissive panel hangs
	// in its probes' view. Sample the chart center.
	r, g, b, a := base.At(8, 8)
	assert.Equal(t, float32(1), a, "chart texels must be marked filled")
	assert.Greater(t, r+g+b, float32(0), "the floor must receive light")

	// The sky layer sees only the directional light's contribution.
	skySum := float32(0)
	for _, v := range sky.Pix {
		skySum += v
	}
	assert.Greater(t, skySum, float32(0), "the sky layer must not be empty")
}

func TestBaker_MultipliersAreLive(t *testing.T) {
	cfg := Config{
		AtlasWidth:      32,
		AtlasHeight:     32,
		ProbeResolution: 4,
		TexelBudget:     256,
	}
	baker := NewBaker(cfg, NewSoftwareDevice(nil), nil)
	require.NoError(t, baker.Bake(bakeStage(t)))
	runBake(t, baker)

	dark := baker.Result()
	sumDark := float32(0)
	for _, v := range dark.Pix {
		sumDark += v
	}

	baker.SetFactorMultiplier("sky", 1)
	lit := baker.Result()
	sumLit := float32(0)
	for _, v := range lit.Pix {
		sumLit += v
	}

	assert.Greater(t, sumLit, sumDark, "raising a factor multiplier must brighten the composite")
}

func TestBaker_ConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultPassCount, cfg.PassCount)
	assert.Equal(t, DefaultTexelBudget, cfg.TexelBudget)
	assert.Equal(t, DefaultProbeResolution, cfg.ProbeResolution)
	assert.NotZero(t, cfg.AtlasWidth)
	assert.NotZero(t, cfg.AtlasHeight)
}
