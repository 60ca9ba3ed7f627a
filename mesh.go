package scanobj

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/mat4"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

// MeshSurface is one captured mesh patch: packed vertex records, packed
// triangle records and the local-to-world transform. The buffers belong to
// the caller and are only read.
type MeshSurface struct {
	VertexBuffer []byte `json:"-"`
	VertexCount  int    `json:"vertexCount"`
	VertexStride int    `json:"vertexStride"`
	IndexBuffer  []byte `json:"-"`
	FaceCount    int    `json:"faceCount"`
	IndexWidth   int    `json:"indexWidth"`
	Transform    mat4.T `json:"transform"`
}

// Validate checks counts, strides, buffer lengths and that every index
// refers to a vertex of this surface. seq is reported in the error.
func (s *MeshSurface) Validate(seq int) error {
	if s.VertexCount < 0 {
		return malformed(seq, nil, "negative vertex count %d", s.VertexCount)
	}
	if s.FaceCount < 0 {
		return malformed(seq, nil, "negative face count %d", s.FaceCount)
	}
	if s.VertexStride < VERTEX_POSITION_SIZE {
		return malformed(seq, nil, "vertex stride %d is smaller than %d", s.VertexStride, VERTEX_POSITION_SIZE)
	}
	if s.IndexWidth != INDEX_WIDTH_UINT16 && s.IndexWidth != INDEX_WIDTH_UINT32 {
		return malformed(seq, nil, "index width %d is neither 2 nor 4", s.IndexWidth)
	}
	if s.VertexCount > 0 && !recordFits(s.VertexCount-1, s.VertexStride, VERTEX_POSITION_SIZE, len(s.VertexBuffer)) {
		return malformed(seq, nil, "vertex buffer holds %d bytes, too few for %d vertices of stride %d", len(s.VertexBuffer), s.VertexCount, s.VertexStride)
	}
	size := INDICES_PER_TRIANGLE * s.IndexWidth
	if s.FaceCount > 0 && !recordFits(s.FaceCount-1, size, size, len(s.IndexBuffer)) {
		return malformed(seq, nil, "index buffer holds %d bytes, too few for %d faces of width %d", len(s.IndexBuffer), s.FaceCount, s.IndexWidth)
	}
	for f := 0; f < s.FaceCount; f++ {
		tri, err := ReadTriangleIndices(s.IndexBuffer, f, s.IndexWidth)
		if err != nil {
			return malformed(seq, err, "face %d", f)
		}
		for _, idx := range tri {
			if uint64(idx) >= uint64(s.VertexCount) {
				return malformed(seq, nil, "face %d references vertex %d of %d", f, idx, s.VertexCount)
			}
		}
	}
	return nil
}

// LocalVertex returns vertex i as stored in the buffer.
func (s *MeshSurface) LocalVertex(i int) (vec3.T, error) {
	x, y, z, err := ReadVertex(s.VertexBuffer, i, s.VertexStride)
	if err != nil {
		return vec3.T{}, err
	}
	return vec3.T{x, y, z}, nil
}

// WorldVertex returns vertex i multiplied by Transform. The transform is
// treated as affine, w is dropped without a divide.
func (s *MeshSurface) WorldVertex(i int) (vec3.T, error) {
	x, y, z, err := ReadVertex(s.VertexBuffer, i, s.VertexStride)
	if err != nil {
		return vec3.T{}, err
	}
	p := vec4.T{x, y, z, 1}
	w := s.Transform.MulVec4(&p)
	return vec3.T{w[0], w[1], w[2]}, nil
}

// Triangle returns the local indices of face i.
func (s *MeshSurface) Triangle(i int) ([3]uint32, error) {
	return ReadTriangleIndices(s.IndexBuffer, i, s.IndexWidth)
}

// GetBoundbox returns min x, y, z followed by max x, y, z of the vertices,
// in world space when world is set.
func (s *MeshSurface) GetBoundbox(world bool) (*[6]float64, error) {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := 0; i < s.VertexCount; i++ {
		var v vec3.T
		var err error
		if world {
			v, err = s.WorldVertex(i)
		} else {
			v, err = s.LocalVertex(i)
		}
		if err != nil {
			return nil, err
		}
		minX = math.Min(minX, float64(v[0]))
		minY = math.Min(minY, float64(v[1]))
		minZ = math.Min(minZ, float64(v[2]))

		maxX = math.Max(maxX, float64(v[0]))
		maxY = math.Max(maxY, float64(v[1]))
		maxZ = math.Max(maxZ, float64(v[2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}, nil
}

// ComputeBounds joins the world bounds of every surface that has vertices.
func ComputeBounds(surfaces []*MeshSurface) (dvec3.Box, error) {
	bbox := dvec3.MinBox
	empty := true
	for _, s := range surfaces {
		if s.VertexCount == 0 {
			continue
		}
		bx, err := s.GetBoundbox(true)
		if err != nil {
			return dvec3.Box{}, err
		}
		min := dvec3.T{bx[0], bx[1], bx[2]}
		max := dvec3.T{bx[3], bx[4], bx[5]}
		bbx := dvec3.Box{Min: min, Max: max}
		bbox.Join(&bbx)
		empty = false
	}
	if empty {
		return dvec3.Box{}, nil
	}
	return bbox, nil
}

func boxArray(b dvec3.Box) [6]float64 {
	return [6]float64{b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2]}
}

func totalCounts(surfaces []*MeshSurface) (vertices, faces int) {
	for _, s := range surfaces {
		vertices += s.VertexCount
		faces += s.FaceCount
	}
	return vertices, faces
}

func validateAll(surfaces []*MeshSurface) error {
	if len(surfaces) == 0 {
		return ErrNoData
	}
	for i, s := range surfaces {
		if s == nil {
			return malformed(i+1, nil, "nil surface")
		}
		if err := s.Validate(i + 1); err != nil {
			return err
		}
	}
	return nil
}
