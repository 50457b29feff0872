package lightbake

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// GLTFItem is one renderable primitive loaded from a glTF file, ready to be
// wrapped in a SceneItem and registered on a stage. Transform is the node's
// world matrix at load time.
type GLTFItem struct {
	Name      string
	Mesh      *MeshData
	Material  Material
	Transform mgl32.Mat4
}

// LoadGLTF opens a .glb or .gltf file and flattens the default scene into a
// list of primitives with world transforms. TEXCOORD_0 becomes the material
// UV channel, TEXCOORD_1 the atlas channel; meshes without TEXCOORD_1 come
// back with empty AtlasUVs and need LayoutAtlas before registration.
func LoadGLTF(path string) ([]GLTFItem, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	texCache := make([]*Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil {
			continue
		}
		img := doc.Images[*gt.Source]
		switch {
		case img.BufferView != nil:
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				return nil, fmt.Errorf("gltf image %d: %w", *gt.Source, err)
			}
			texCache[i], err = decodeTexture(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("gltf image %d: %w", *gt.Source, err)
			}
		case img.URI != "" && !img.IsEmbeddedResource():
			f, err := os.Open(filepath.Join(dir, img.URI))
			if err != nil {
				return nil, fmt.Errorf("gltf image %q: %w", img.URI, err)
			}
			texCache[i], err = decodeTexture(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("gltf image %q: %w", img.URI, err)
			}
		}
	}

	matCache := make([]Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := Material{AlbedoColor: mgl32.Vec3{1, 1, 1}}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.AlbedoColor = mgl32.Vec3{float32(cf[0]), float32(cf[1]), float32(cf[2])}
			if pbr.BaseColorTexture != nil {
				idx := int(pbr.BaseColorTexture.Index)
				if idx < len(texCache) {
					mat.AlbedoTexture = texCache[idx]
				}
			}
		}
		ef := gm.EmissiveFactor
		mat.EmissiveColor = mgl32.Vec3{float32(ef[0]), float32(ef[1]), float32(ef[2])}
		if gm.EmissiveTexture != nil {
			idx := int(gm.EmissiveTexture.Index)
			if idx < len(texCache) {
				mat.EmissiveTexture = texCache[idx]
			}
		}
		if mat.EmissiveColor.Len() > 0 || mat.EmissiveTexture != nil {
			mat.EmissiveIntensity = 1
		}
		matCache[i] = mat
	}

	var items []GLTFItem
	var visit func(nodeIdx int, parent mgl32.Mat4)
	visit = func(nodeIdx int, parent mgl32.Mat4) {
		gn := doc.Nodes[nodeIdx]
		world := parent.Mul4(nodeTransform(gn))
		if gn.Mesh != nil {
			gm := doc.Meshes[*gn.Mesh]
			for pi, prim := range gm.Primitives {
				mesh, err := loadPrimitive(doc, prim)
				if err != nil {
					continue
				}
				item := GLTFItem{
					Name:      fmt.Sprintf("%s_prim%d", nodeName(gn, nodeIdx), pi),
					Mesh:      mesh,
					Material:  Material{AlbedoColor: mgl32.Vec3{1, 1, 1}},
					Transform: world,
				}
				if prim.Material != nil && int(*prim.Material) < len(matCache) {
					item.Material = matCache[*prim.Material]
				}
				items = append(items, item)
			}
		}
		for _, child := range gn.Children {
			visit(int(child), world)
		}
	}

	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		for _, root := range doc.Scenes[*doc.Scene].Nodes {
			visit(int(root), mgl32.Ident4())
		}
	} else {
		for i := range doc.Nodes {
			visit(i, mgl32.Ident4())
		}
	}
	return items, nil
}

func nodeName(gn *gltf.Node, idx int) string {
	if gn.Name != "" {
		return gn.Name
	}
	return fmt.Sprintf("node_%d", idx)
}

func nodeTransform(gn *gltf.Node) mgl32.Mat4 {
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // [x, y, z, w]
	s := gn.ScaleOrDefault()

	translate := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))
	rotate := mgl32.Quat{
		W: float32(r[3]),
		V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])},
	}.Mat4()
	scale := mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2]))
	return translate.Mul4(rotate).Mul4(scale)
}

func loadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*MeshData, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	mesh := &MeshData{
		Positions: make([]mgl32.Vec3, len(positions)),
	}
	for i, p := range positions {
		mesh.Positions[i] = mgl32.Vec3{p[0], p[1], p[2]}
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err == nil {
			mesh.Normals = make([]mgl32.Vec3, len(normals))
			for i, n := range normals {
				mesh.Normals[i] = mgl32.Vec3{n[0], n[1], n[2]}
			}
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err == nil {
			mesh.UVs = make([]mgl32.Vec2, len(uvs))
			for i, uv := range uvs {
				mesh.UVs[i] = mgl32.Vec2{uv[0], uv[1]}
			}
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_1"]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err == nil {
			mesh.AtlasUVs = make([]mgl32.Vec2, len(uvs))
			for i, uv := range uvs {
				mesh.AtlasUVs[i] = mgl32.Vec2{uv[0], uv[1]}
			}
		}
	}

	if prim.Indices != nil {
		mesh.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		mesh.Indices = make([]uint32, len(positions))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}
	return mesh, nil
}

func decodeTexture(r io.Reader) (*Texture, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	tex := &Texture{
		Width:  b.Dx(),
		Height: b.Dy(),
		Texels: make([]uint8, b.Dx()*b.Dy()*4),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, a16 := src.At(x, y).RGBA()
			tex.Texels[i+0] = uint8(r16 >> 8)
			tex.Texels[i+1] = uint8(g16 >> 8)
			tex.Texels[i+2] = uint8(b16 >> 8)
			tex.Texels[i+3] = uint8(a16 >> 8)
			i += 4
		}
	}
	return tex, nil
}
