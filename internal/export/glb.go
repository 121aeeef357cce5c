package export

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// WriteGLB writes the mesh as a binary glTF file holding a single node
// named name. Positions and indices are always written; normals, vertex
// colours and UVs are written when the mesh carries them.
func WriteGLB(path, name string, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}

	positions := make([][3]float32, m.VertexCount())
	for i, p := range m.Positions {
		positions[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
	}
	indices := make([]uint32, 0, 3*m.TriangleCount())
	for _, t := range m.Triangles {
		indices = append(indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = generatorName

	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(doc, positions),
	}
	if m.HasNormals() {
		normals := make([][3]float32, len(m.Normals))
		for i, n := range m.Normals {
			normals[i] = [3]float32{float32(n[0]), float32(n[1]), float32(n[2])}
		}
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}
	if m.HasColors() {
		colors := make([][4]float32, len(m.Colors))
		for i, c := range m.Colors {
			colors[i] = [4]float32{colorChannel(c[0]), colorChannel(c[1]), colorChannel(c[2]), 1}
		}
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, colors)
	}
	if m.HasUVs() {
		uvs := make([][2]float32, len(m.UVs))
		for i, uv := range m.UVs {
			uvs[i] = [2]float32{float32(uv[0]), float32(uv[1])}
		}
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, uvs)
	}

	prim := &gltf.Primitive{
		Attributes: attrs,
		Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
		Material:   gltf.Index(0),
	}
	doc.Materials = []*gltf.Material{{
		Name: "vertex_lit",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{Name: name, Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	return gltf.SaveBinary(doc, path)
}

func colorChannel(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
