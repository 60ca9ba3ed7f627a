package scanobj

import (
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/flywave/go3d/mat4"
	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec4"
)

var emptyMatrix = [16]float32{}

// ReadGltfSurfaces opens a .gltf or .glb file and converts it with SurfacesFromGltf.
func ReadGltfSurfaces(path string) ([]*MeshSurface, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "scanobj: open %s", path)
	}
	return SurfacesFromGltf(doc)
}

// SurfacesFromGltf turns every primitive of every mesh node reachable from
// the scenes into a MeshSurface, and every empty leaf node into a surface
// without vertices. Buffers are sliced from the document without copying
// and transforms are accumulated down the node tree.
func SurfacesFromGltf(doc *gltf.Document) ([]*MeshSurface, error) {
	var out []*MeshSurface
	var walk func(idx uint32, parent mat4.T, depth int) error
	walk = func(idx uint32, parent mat4.T, depth int) error {
		if int(idx) >= len(doc.Nodes) {
			return errors.Errorf("scanobj: node %d out of range", idx)
		}
		if depth > len(doc.Nodes) {
			return errors.Errorf("scanobj: node %d is part of a cycle", idx)
		}
		nd := doc.Nodes[idx]
		local := nodeMatrix(nd)
		var world mat4.T
		world.AssignMul(&parent, &local)
		if nd.Mesh != nil {
			if int(*nd.Mesh) >= len(doc.Meshes) {
				return errors.Errorf("scanobj: node %d references mesh %d out of range", idx, *nd.Mesh)
			}
			for pi, ps := range doc.Meshes[*nd.Mesh].Primitives {
				s, err := surfaceFromPrimitive(doc, ps)
				if err != nil {
					return errors.Wrapf(err, "scanobj: node %d primitive %d", idx, pi)
				}
				s.Transform = world
				out = append(out, s)
			}
		}
		if nd.Mesh == nil && nd.Camera == nil && len(nd.Children) == 0 {
			// empty leaf, written for a surface without vertices
			out = append(out, &MeshSurface{
				VertexStride: VERTEX_POSITION_SIZE,
				IndexWidth:   INDEX_WIDTH_UINT16,
				Transform:    world,
			})
		}
		for _, c := range nd.Children {
			if err := walk(c, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	var roots []uint32
	if len(doc.Scenes) > 0 {
		scene := uint32(0)
		if doc.Scene != nil {
			scene = *doc.Scene
		}
		if int(scene) >= len(doc.Scenes) {
			return nil, errors.Errorf("scanobj: scene %d out of range", scene)
		}
		roots = doc.Scenes[scene].Nodes
	} else {
		for i := range doc.Nodes {
			roots = append(roots, uint32(i))
		}
	}
	for _, r := range roots {
		if err := walk(r, mat4.Ident, 0); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func surfaceFromPrimitive(doc *gltf.Document, ps *gltf.Primitive) (*MeshSurface, error) {
	if ps.Mode != gltf.PrimitiveTriangles && ps.Mode != gltf.PrimitivePoints {
		return nil, errors.Errorf("unsupported primitive mode %d", ps.Mode)
	}
	posIdx, ok := ps.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	pos, err := accessorAt(doc, posIdx)
	if err != nil {
		return nil, err
	}
	if pos.ComponentType != gltf.ComponentFloat || pos.Type != gltf.AccessorVec3 {
		return nil, errors.New("POSITION must be float VEC3")
	}
	vbuf, stride, err := accessorBytes(doc, pos, VERTEX_POSITION_SIZE)
	if err != nil {
		return nil, errors.Wrap(err, "POSITION")
	}
	s := &MeshSurface{
		VertexBuffer: vbuf,
		VertexCount:  int(pos.Count),
		VertexStride: stride,
		IndexWidth:   INDEX_WIDTH_UINT16,
		Transform:    mat4.Ident,
	}

	switch {
	case ps.Mode == gltf.PrimitivePoints:
		return s, nil
	case ps.Indices == nil:
		return s, sequentialFaces(s)
	}

	ind, err := accessorAt(doc, *ps.Indices)
	if err != nil {
		return nil, err
	}
	var width int
	switch ind.ComponentType {
	case gltf.ComponentUshort:
		width = INDEX_WIDTH_UINT16
	case gltf.ComponentUint:
		width = INDEX_WIDTH_UINT32
	default:
		return nil, errors.Errorf("unsupported index component type %d", ind.ComponentType)
	}
	if ind.Count%INDICES_PER_TRIANGLE != 0 {
		return nil, errors.Errorf("index count %d is not a multiple of 3", ind.Count)
	}
	ibuf, istride, err := accessorBytes(doc, ind, width)
	if err != nil {
		return nil, errors.Wrap(err, "indices")
	}
	if istride != width {
		return nil, errors.New("interleaved index buffers are not supported")
	}
	s.IndexBuffer = ibuf
	s.FaceCount = int(ind.Count) / INDICES_PER_TRIANGLE
	s.IndexWidth = width
	return s, nil
}

// sequentialFaces gives a non-indexed triangle list its implicit faces,
// vertices taken three at a time.
func sequentialFaces(s *MeshSurface) error {
	if s.VertexCount%INDICES_PER_TRIANGLE != 0 {
		return errors.Errorf("vertex count %d of a non-indexed triangle list is not a multiple of 3", s.VertexCount)
	}
	faces := make([][3]uint32, s.VertexCount/INDICES_PER_TRIANGLE)
	for i := range faces {
		v := uint32(i * INDICES_PER_TRIANGLE)
		faces[i] = [3]uint32{v, v + 1, v + 2}
	}
	width := INDEX_WIDTH_UINT16
	if s.VertexCount > math.MaxUint16+1 {
		width = INDEX_WIDTH_UINT32
	}
	ib, err := EncodeIndices(faces, width)
	if err != nil {
		return err
	}
	s.IndexBuffer, s.FaceCount, s.IndexWidth = ib, len(faces), width
	return nil
}

func accessorAt(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// accessorBytes returns the bytes an accessor addresses, starting at its
// first element, and the element stride.
func accessorBytes(doc *gltf.Document, acc *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if acc.BufferView == nil {
		return nil, 0, errors.New("sparse or empty accessors are not supported")
	}
	if int(*acc.BufferView) >= len(doc.BufferViews) {
		return nil, 0, errors.Errorf("buffer view %d out of range", *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, 0, errors.Errorf("buffer %d out of range", view.Buffer)
	}
	data := doc.Buffers[view.Buffer].Data
	start := int(view.ByteOffset)
	end := start + int(view.ByteLength)
	if end > len(data) {
		return nil, 0, errors.Errorf("buffer view [%d, %d) exceeds buffer of %d bytes", start, end, len(data))
	}
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = elemSize
	}
	off := start + int(acc.ByteOffset)
	if off > end {
		return nil, 0, errors.Errorf("accessor offset %d exceeds its view", acc.ByteOffset)
	}
	return data[off:end], stride, nil
}

// nodeMatrix returns the node's local transform from either its matrix or
// its translation, rotation and scale.
func nodeMatrix(nd *gltf.Node) mat4.T {
	if nd.Matrix != emptyMatrix && nd.Matrix != gltf.DefaultMatrix {
		return matFromGltf(nd.Matrix)
	}
	m := mat4.Ident
	rot := nd.Rotation
	if rot != [4]float32{} && rot != [4]float32{0, 0, 0, 1} {
		q := quaternion.FromVec4(&vec4.T{rot[0], rot[1], rot[2], rot[3]})
		m.AssignQuaternion(&q)
	}
	sc := nd.Scale
	if sc != [3]float32{} {
		for c := 0; c < 3; c++ {
			for r := 0; r < 3; r++ {
				m[c][r] *= sc[c]
			}
		}
	}
	m[3][0] = nd.Translation[0]
	m[3][1] = nd.Translation[1]
	m[3][2] = nd.Translation[2]
	return m
}
