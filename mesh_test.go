package scanobj

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywave/go3d/mat4"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

func translation(x, y, z float32) *mat4.T {
	return &mat4.T{
		vec4.T{1, 0, 0, 0},
		vec4.T{0, 1, 0, 0},
		vec4.T{0, 0, 1, 0},
		vec4.T{x, y, z, 1},
	}
}

func mustSurface(t *testing.T, vs []vec3.T, faces [][3]uint32, transform *mat4.T) *MeshSurface {
	t.Helper()
	s, err := NewSurface(vs, faces, transform)
	require.NoError(t, err)
	return s
}

// TestReadVertex decodes records wider than the position prefix.
func TestReadVertex(t *testing.T) {
	buf := EncodeVertices([]vec3.T{{1, 2, 3}, {-4.5, 0.25, 1e-3}}, 16)
	for i := 12; i < len(buf); i += 16 {
		copy(buf[i:i+4], []byte{0xff, 0xff, 0xff, 0xff})
	}

	x, y, z, err := ReadVertex(buf, 1, 16)
	require.NoError(t, err)
	assert.Equal(t, float32(-4.5), x)
	assert.Equal(t, float32(0.25), y)
	assert.Equal(t, float32(1e-3), z)

	x, y, z, err = ReadVertex(buf, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{x, y, z})
}

func TestReadVertexOutOfBounds(t *testing.T) {
	buf := EncodeVertices([]vec3.T{{1, 2, 3}}, 12)

	tests := []struct {
		name   string
		index  int
		stride int
		buf    []byte
	}{
		{"past end", 1, 12, buf},
		{"negative index", -1, 12, buf},
		{"short stride", 0, 8, buf},
		{"truncated record", 0, 12, buf[:11]},
		{"huge stride", 1, math.MaxInt, buf},
		{"huge index", math.MaxInt / 2, 12, buf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ReadVertex(tt.buf, tt.index, tt.stride)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestReadTriangleIndices(t *testing.T) {
	faces := [][3]uint32{{0, 1, 2}, {7, 65535, 3}}
	for _, width := range []int{INDEX_WIDTH_UINT16, INDEX_WIDTH_UINT32} {
		buf, err := EncodeIndices(faces, width)
		require.NoError(t, err)
		require.Len(t, buf, len(faces)*3*width)
		for i, f := range faces {
			tri, err := ReadTriangleIndices(buf, i, width)
			require.NoError(t, err)
			assert.Equal(t, f, tri, "width %d face %d", width, i)
		}
		_, err = ReadTriangleIndices(buf, len(faces), width)
		var de *DecodeError
		assert.ErrorAs(t, err, &de)
		_, err = ReadTriangleIndices(buf, math.MaxInt/2, width)
		assert.ErrorAs(t, err, &de)
	}

	_, err := ReadTriangleIndices(make([]byte, 9), 0, 3)
	assert.Error(t, err)
}

func TestEncodeIndicesOverflow(t *testing.T) {
	_, err := EncodeIndices([][3]uint32{{0, 1, 70000}}, INDEX_WIDTH_UINT16)
	assert.Error(t, err)
	_, err = EncodeIndices(nil, 8)
	assert.Error(t, err)
}

func TestNewSurfaceIndexWidth(t *testing.T) {
	s := mustSurface(t, make([]vec3.T, 3), [][3]uint32{{0, 1, 2}}, nil)
	assert.Equal(t, INDEX_WIDTH_UINT16, s.IndexWidth)
	assert.Equal(t, mat4.Ident, s.Transform)

	s = mustSurface(t, make([]vec3.T, math.MaxUint16+2), [][3]uint32{{0, 1, 65536}}, nil)
	assert.Equal(t, INDEX_WIDTH_UINT32, s.IndexWidth)
	require.NoError(t, s.Validate(1))
}

func TestWorldVertex(t *testing.T) {
	s := mustSurface(t, []vec3.T{{1, 0, 0}}, nil, translation(0, 2, 0))
	v, err := s.WorldVertex(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, v[0], 1e-6)
	assert.InDelta(t, 2, v[1], 1e-6)
	assert.InDelta(t, 0, v[2], 1e-6)

	local, err := s.LocalVertex(0)
	require.NoError(t, err)
	assert.Equal(t, vec3.T{1, 0, 0}, local)
}

// TestWorldVertexNoDivide keeps w out of the result for non-affine input.
func TestWorldVertexNoDivide(t *testing.T) {
	m := mat4.Ident
	m[3][3] = 2
	s := mustSurface(t, []vec3.T{{1, 2, 3}}, nil, &m)
	v, err := s.WorldVertex(0)
	require.NoError(t, err)
	assert.Equal(t, vec3.T{1, 2, 3}, v)
}

func TestValidate(t *testing.T) {
	good := func() *MeshSurface {
		return mustSurface(t, []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][3]uint32{{0, 1, 2}}, nil)
	}
	require.NoError(t, good().Validate(1))

	tests := []struct {
		name   string
		mutate func(s *MeshSurface)
	}{
		{"negative vertex count", func(s *MeshSurface) { s.VertexCount = -1 }},
		{"negative face count", func(s *MeshSurface) { s.FaceCount = -1 }},
		{"short stride", func(s *MeshSurface) { s.VertexStride = 8 }},
		{"bad index width", func(s *MeshSurface) { s.IndexWidth = 3 }},
		{"short vertex buffer", func(s *MeshSurface) { s.VertexBuffer = s.VertexBuffer[:30] }},
		{"short index buffer", func(s *MeshSurface) { s.IndexBuffer = s.IndexBuffer[:4] }},
		{"index out of range", func(s *MeshSurface) { s.VertexCount = 2; s.VertexBuffer = s.VertexBuffer[:24] }},
		{"too many faces", func(s *MeshSurface) { s.FaceCount = 2 }},
		{"huge stride", func(s *MeshSurface) { s.VertexStride = math.MaxInt }},
		{"huge vertex count", func(s *MeshSurface) { s.VertexCount = math.MaxInt }},
		{"huge face count", func(s *MeshSurface) { s.FaceCount = math.MaxInt }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good()
			tt.mutate(s)
			err := s.Validate(4)
			var me *MalformedSurfaceError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, 4, me.Surface)
		})
	}
}

// TestValidateNegativeInt32Index rejects signed 32-bit indices below zero.
func TestValidateNegativeInt32Index(t *testing.T) {
	s := mustSurface(t, make([]vec3.T, 3), nil, nil)
	s.IndexWidth = INDEX_WIDTH_UINT32
	s.IndexBuffer = make([]byte, 12)
	binary.LittleEndian.PutUint32(s.IndexBuffer[4:], uint32(0xffffffff))
	s.FaceCount = 1
	var me *MalformedSurfaceError
	require.ErrorAs(t, s.Validate(1), &me)
}

func TestGetBoundbox(t *testing.T) {
	s := mustSurface(t, []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, -1}}, nil, translation(10, 0, 0))
	local, err := s.GetBoundbox(false)
	require.NoError(t, err)
	assert.Equal(t, [6]float64{0, 0, -1, 1, 1, 0}, *local)

	world, err := s.GetBoundbox(true)
	require.NoError(t, err)
	assert.Equal(t, [6]float64{10, 0, -1, 11, 1, 0}, *world)
}

func TestComputeBounds(t *testing.T) {
	a := mustSurface(t, []vec3.T{{0, 0, 0}, {1, 1, 1}}, nil, nil)
	b := mustSurface(t, []vec3.T{{-1, 0, 0}}, nil, translation(0, 0, 5))
	empty := &MeshSurface{VertexStride: 12, IndexWidth: 2, Transform: mat4.Ident}

	box, err := ComputeBounds([]*MeshSurface{a, empty, b})
	require.NoError(t, err)
	assert.Equal(t, [6]float64{-1, 0, 0, 1, 1, 5}, boxArray(box))

	box, err = ComputeBounds([]*MeshSurface{empty})
	require.NoError(t, err)
	assert.Equal(t, [6]float64{}, boxArray(box))
}
