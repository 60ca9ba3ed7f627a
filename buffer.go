package scanobj

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/flywave/go3d/mat4"
	"github.com/flywave/go3d/vec3"
)

// recordFits reports whether record index, size bytes long and placed
// stride bytes apart, lies inside a buffer of n bytes. It never overflows.
func recordFits(index, stride, size, n int) bool {
	if index < 0 || stride <= 0 || size > n {
		return false
	}
	return index <= (n-size)/stride
}

// recordOffset is index*stride, or -1 when that does not fit an int.
func recordOffset(index, stride int) int {
	if stride > 0 && index > math.MaxInt/stride {
		return -1
	}
	return index * stride
}

// ReadVertex decodes the x, y, z float32 prefix of the vertex record at index.
func ReadVertex(buf []byte, index, stride int) (x, y, z float32, err error) {
	if stride < VERTEX_POSITION_SIZE || !recordFits(index, stride, VERTEX_POSITION_SIZE, len(buf)) {
		return 0, 0, 0, &DecodeError{Record: index, Offset: recordOffset(index, stride), Size: VERTEX_POSITION_SIZE, Len: len(buf)}
	}
	off := index * stride
	rec := buf[off : off+VERTEX_POSITION_SIZE]
	x = math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8]))
	z = math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))
	return x, y, z, nil
}

// ReadTriangleIndices decodes the three indices of the triangle record at
// index. Width is the byte size of one index, 2 or 4.
func ReadTriangleIndices(buf []byte, index, width int) ([3]uint32, error) {
	var tri [3]uint32
	if width != INDEX_WIDTH_UINT16 && width != INDEX_WIDTH_UINT32 {
		return tri, errors.Errorf("scanobj: unsupported index width %d", width)
	}
	size := width * INDICES_PER_TRIANGLE
	if !recordFits(index, size, size, len(buf)) {
		return tri, &DecodeError{Record: index, Offset: recordOffset(index, size), Size: size, Len: len(buf)}
	}
	off := index * size
	rec := buf[off : off+size]
	for i := range tri {
		if width == INDEX_WIDTH_UINT16 {
			tri[i] = uint32(binary.LittleEndian.Uint16(rec[i*2:]))
		} else {
			tri[i] = binary.LittleEndian.Uint32(rec[i*4:])
		}
	}
	return tri, nil
}

// EncodeVertices packs positions into records of the given stride. Bytes
// past the 12-byte position are left zero.
func EncodeVertices(vs []vec3.T, stride int) []byte {
	if stride < VERTEX_POSITION_SIZE {
		stride = VERTEX_POSITION_SIZE
	}
	buf := make([]byte, len(vs)*stride)
	for i, v := range vs {
		rec := buf[i*stride:]
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(v[2]))
	}
	return buf
}

// EncodeIndices packs triangles using 2- or 4-byte indices.
func EncodeIndices(faces [][3]uint32, width int) ([]byte, error) {
	switch width {
	case INDEX_WIDTH_UINT16:
		buf := make([]byte, len(faces)*INDICES_PER_TRIANGLE*2)
		for i, f := range faces {
			for j, idx := range f {
				if idx > math.MaxUint16 {
					return nil, errors.Errorf("scanobj: index %d of face %d does not fit 16 bits", idx, i)
				}
				binary.LittleEndian.PutUint16(buf[(i*3+j)*2:], uint16(idx))
			}
		}
		return buf, nil
	case INDEX_WIDTH_UINT32:
		buf := make([]byte, len(faces)*INDICES_PER_TRIANGLE*4)
		for i, f := range faces {
			for j, idx := range f {
				binary.LittleEndian.PutUint32(buf[(i*3+j)*4:], idx)
			}
		}
		return buf, nil
	default:
		return nil, errors.Errorf("scanobj: unsupported index width %d", width)
	}
}

// NewSurface packs vertices and faces into a tightly strided surface. The
// narrowest index width that holds every vertex is chosen.
func NewSurface(vs []vec3.T, faces [][3]uint32, transform *mat4.T) (*MeshSurface, error) {
	width := INDEX_WIDTH_UINT16
	if len(vs) > math.MaxUint16+1 {
		width = INDEX_WIDTH_UINT32
	}
	ib, err := EncodeIndices(faces, width)
	if err != nil {
		return nil, err
	}
	s := &MeshSurface{
		VertexBuffer: EncodeVertices(vs, VERTEX_POSITION_SIZE),
		VertexCount:  len(vs),
		VertexStride: VERTEX_POSITION_SIZE,
		IndexBuffer:  ib,
		FaceCount:    len(faces),
		IndexWidth:   width,
		Transform:    mat4.Ident,
	}
	if transform != nil {
		s.Transform = *transform
	}
	return s, nil
}
