package lightbake

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/draw"
)

// ExportEXR writes the lightmap as a half-float RGBA OpenEXR file, keeping
// the full HDR range of the bake.
func ExportEXR(path string, img *FloatImage) error {
	if img == nil {
		return fmt.Errorf("export %s: nil lightmap", path)
	}
	out := exr.NewRGBAImage(exr.RectFromSize(img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b, a := img.At(x, y)
			out.SetRGBA(x, y, r, g, b, a)
		}
	}
	return exr.EncodeFile(path, out)
}

// ExportPNG tonemaps the HDR lightmap with the ACES filmic curve, encodes to
// sRGB and writes an 8-bit PNG. scale > 1 upscales with nearest-neighbor so
// individual texels stay inspectable.
func ExportPNG(path string, img *FloatImage, scale int) error {
	if img == nil {
		return fmt.Errorf("export %s: nil lightmap", path)
	}
	if scale < 1 {
		scale = 1
	}

	ldr := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b, a := img.At(x, y)
			i := ldr.PixOffset(x, y)
			ldr.Pix[i+0] = encodeSRGB(acesTonemap(r))
			ldr.Pix[i+1] = encodeSRGB(acesTonemap(g))
			ldr.Pix[i+2] = encodeSRGB(acesTonemap(b))
			ldr.Pix[i+3] = byte(clampf(a, 0, 1)*255 + 0.5)
		}
	}

	final := image.Image(ldr)
	if scale > 1 {
		big := image.NewRGBA(image.Rect(0, 0, img.Width*scale, img.Height*scale))
		draw.NearestNeighbor.Scale(big, big.Bounds(), ldr, ldr.Bounds(), draw.Src, nil)
		final = big
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, final)
}

// acesTonemap is the Narkowicz ACES filmic approximation.
func acesTonemap(x float32) float32 {
	v := (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
	return clampf(v, 0, 1)
}

func encodeSRGB(v float32) byte {
	return byte(float32(math.Pow(float64(v), 1/2.2))*255 + 0.5)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
