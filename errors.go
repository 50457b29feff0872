package lightbake

import (
	"errors"
	"fmt"
)

// Fatal error classes. Registration-time precondition failures and
// mid-sweep invariant violations abort the bake for the current Workbench;
// the caller must fix the input and start over. Transient conditions
// (a light scene not built yet) are never surfaced as errors.
var (
	// ErrInvalidMesh reports a mesh missing an index, normal or atlas-UV
	// buffer, or carrying inconsistent buffer lengths.
	ErrInvalidMesh = errors.New("lightbake: invalid mesh")

	// ErrUnsupportedLight reports a light kind other than directional or spot.
	ErrUnsupportedLight = errors.New("lightbake: unsupported light kind")

	// ErrAtlasCorrupt reports an atlas texel whose encoded face id decodes
	// outside the item/face tables. This means the AtlasMap was built for a
	// different Workbench or the mapper itself is broken; it is never retried.
	ErrAtlasCorrupt = errors.New("lightbake: atlas lookup corrupt")

	// ErrTooManyFaces reports an item exceeding MaxItemFaces.
	ErrTooManyFaces = errors.New("lightbake: item exceeds per-item face limit")
)

// AtlasSizeError is the capacity-violation error: the computed layout does
// not fit the configured atlas resolution. RequiredSize is the smallest
// square resolution that would have fit, so the caller can retry.
type AtlasSizeError struct {
	Width        int
	Height       int
	RequiredSize int
}

func (e *AtlasSizeError) Error() string {
	return fmt.Sprintf("lightbake: atlas %dx%d too small, layout requires at least %dx%d",
		e.Width, e.Height, e.RequiredSize, e.RequiredSize)
}
