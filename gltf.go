package scanobj

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/flywave/go3d/mat4"
)

const GLTF_VERSION = "2.0"

// ExportGLB writes surfaces to dest as binary glTF with the default exporter.
func ExportGLB(surfaces []*MeshSurface, dest string) (*ExportResult, error) {
	return defaultExporter.ExportGLB(surfaces, dest)
}

// ExportGLB has the same preconditions and errors as ExportOBJ. Each
// surface becomes a node whose matrix is the surface transform, so the
// positions stay in local space.
func (e *Exporter) ExportGLB(surfaces []*MeshSurface, dest string) (*ExportResult, error) {
	log := e.logger().With(zap.String("path", dest), zap.String("format", FORMAT_GLB))
	start := time.Now()

	if err := validateAll(surfaces); err != nil {
		log.Warn("glb export rejected", zap.Int("meshes", len(surfaces)), zap.Error(err))
		return nil, err
	}
	doc := CreateDoc(e.generator())
	if err := BuildGltf(doc, surfaces); err != nil {
		log.Error("glb build failed", zap.Error(err))
		return nil, err
	}
	bt, err := GetGltfBinary(doc, 4)
	if err != nil {
		log.Error("glb encode failed", zap.Error(err))
		return nil, errors.Wrap(err, "scanobj: encode glb")
	}
	bounds, err := ComputeBounds(surfaces)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(dest, bt); err != nil {
		log.Error("glb write failed", zap.Error(err))
		return nil, err
	}
	vertices, faces := totalCounts(surfaces)
	log.Info("glb export finished",
		zap.Int("meshes", len(surfaces)),
		zap.Int("vertices", vertices),
		zap.Int("faces", faces),
		zap.Int("bytes", len(bt)),
		zap.Duration("elapsed", time.Since(start)))

	return &ExportResult{
		Path:             dest,
		Format:           FORMAT_GLB,
		MeshCount:        len(surfaces),
		TotalVertexCount: vertices,
		FaceCount:        faces,
		Bounds:           boxArray(bounds),
	}, nil
}

func CreateDoc(generator string) *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = GLTF_VERSION
	doc.Asset.Generator = generator
	srcIndex := uint32(0)
	doc.Scene = &srcIndex
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

type calcSizeWriter struct {
	writer io.Writer
	Size   int
}

func (w *calcSizeWriter) Write(p []byte) (n int, err error) {
	si := len(p)
	if _, err := w.writer.Write(p); err != nil {
		return 0, err
	}
	w.Size += si
	return si, nil
}

func (w *calcSizeWriter) Bytes() []byte {
	return w.writer.(*bytes.Buffer).Bytes()
}

func newSizeWriter() *calcSizeWriter {
	return &calcSizeWriter{writer: bytes.NewBuffer([]byte{})}
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

// GetGltfBinary encodes doc as GLB and pads the result with spaces to a
// multiple of paddingUnit.
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	w := newSizeWriter()
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	padding := calcPadding(w.Size, paddingUnit)
	if padding == 0 {
		return w.Bytes(), nil
	}
	w.Write(bytes.Repeat([]byte{0x20}, padding))
	return w.Bytes(), nil
}

// BuildGltf appends one node and one mesh per surface to doc. Surfaces
// must already be validated.
func BuildGltf(doc *gltf.Document, surfaces []*MeshSurface) error {
	buffer := doc.Buffers[0]
	for i, s := range surfaces {
		name := "Mesh_" + strconv.Itoa(i+1)
		nde := &gltf.Node{Name: name, Matrix: matToGltf(&s.Transform)}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, nde)
		if s.VertexCount == 0 {
			continue
		}

		buf := bytes.NewBuffer(nil)
		startLen := buffer.ByteLength

		var indecs *gltf.BufferView
		if s.FaceCount > 0 {
			indecs = &gltf.BufferView{Buffer: 0, ByteOffset: startLen}
			for f := 0; f < s.FaceCount; f++ {
				tri, err := s.Triangle(f)
				if err != nil {
					return malformed(i+1, err, "face %d", f)
				}
				binary.Write(buf, binary.LittleEndian, tri)
			}
			indecs.ByteLength = uint32(buf.Len())
		}

		postions := &gltf.BufferView{Buffer: 0, ByteOffset: uint32(buf.Len()) + startLen}
		for v := 0; v < s.VertexCount; v++ {
			p, err := s.LocalVertex(v)
			if err != nil {
				return malformed(i+1, err, "vertex %d", v)
			}
			binary.Write(buf, binary.LittleEndian, p)
		}
		postions.ByteLength = uint32(buf.Len()) - postions.ByteOffset + startLen

		buffer.ByteLength += uint32(buf.Len())
		buffer.Data = append(buffer.Data, buf.Bytes()...)

		ps := &gltf.Primitive{Attributes: make(gltf.Attribute), Mode: gltf.PrimitiveTriangles}
		if indecs != nil {
			bvIdx := uint32(len(doc.BufferViews))
			doc.BufferViews = append(doc.BufferViews, indecs)
			indexacc := &gltf.Accessor{
				BufferView:    &bvIdx,
				ComponentType: gltf.ComponentUint,
				Type:          gltf.AccessorScalar,
				Count:         uint32(s.FaceCount * INDICES_PER_TRIANGLE),
			}
			accIdx := uint32(len(doc.Accessors))
			doc.Accessors = append(doc.Accessors, indexacc)
			ps.Indices = &accIdx
		} else {
			ps.Mode = gltf.PrimitivePoints
		}

		bvPos := uint32(len(doc.BufferViews))
		doc.BufferViews = append(doc.BufferViews, postions)
		box, err := s.GetBoundbox(false)
		if err != nil {
			return malformed(i+1, err, "bounds")
		}
		posacc := &gltf.Accessor{
			BufferView:    &bvPos,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         uint32(s.VertexCount),
			Min:           []float32{float32(box[0]), float32(box[1]), float32(box[2])},
			Max:           []float32{float32(box[3]), float32(box[4]), float32(box[5])},
		}
		ps.Attributes["POSITION"] = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, posacc)

		meshId := uint32(len(doc.Meshes))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{ps}})
		nde.Mesh = &meshId
	}
	return nil
}

// matToGltf flattens a go3d matrix into glTF column-major order.
func matToGltf(m *mat4.T) [16]float32 {
	var out [16]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[c][r]
		}
	}
	return out
}

func matFromGltf(a [16]float32) mat4.T {
	var m mat4.T
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			m[c][r] = a[c*4+r]
		}
	}
	return m
}
