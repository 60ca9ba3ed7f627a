package scanobj

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ObjStats counts what WriteOBJ emitted.
type ObjStats struct {
	MeshCount   int
	VertexCount int
	FaceCount   int
}

// Exporter writes captured surfaces to disk. The zero value logs nothing
// and uses DefaultGenerator.
type Exporter struct {
	Logger    *zap.Logger
	Generator string
}

var defaultExporter = &Exporter{}

// ExportOBJ writes surfaces to dest as Wavefront OBJ with the default exporter.
func ExportOBJ(surfaces []*MeshSurface, dest string) (*ExportResult, error) {
	return defaultExporter.ExportOBJ(surfaces, dest)
}

func (e *Exporter) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Exporter) generator() string {
	if e == nil || e.Generator == "" {
		return DefaultGenerator
	}
	return e.Generator
}

// ExportOBJ validates every surface, renders the OBJ text and replaces
// dest with it. Nothing is written when the input is empty or malformed.
func (e *Exporter) ExportOBJ(surfaces []*MeshSurface, dest string) (*ExportResult, error) {
	log := e.logger().With(zap.String("path", dest), zap.String("format", FORMAT_OBJ))
	start := time.Now()

	if err := validateAll(surfaces); err != nil {
		log.Warn("obj export rejected", zap.Int("meshes", len(surfaces)), zap.Error(err))
		return nil, err
	}
	log.Debug("obj export started", zap.Int("meshes", len(surfaces)))

	var buf bytes.Buffer
	stats, err := e.writeOBJ(&buf, surfaces)
	if err != nil {
		log.Error("obj encode failed", zap.Error(err))
		return nil, err
	}
	bounds, err := ComputeBounds(surfaces)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(dest, buf.Bytes()); err != nil {
		log.Error("obj write failed", zap.Error(err))
		return nil, err
	}

	log.Info("obj export finished",
		zap.Int("meshes", stats.MeshCount),
		zap.Int("vertices", stats.VertexCount),
		zap.Int("faces", stats.FaceCount),
		zap.Int("bytes", buf.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &ExportResult{
		Path:             dest,
		Format:           FORMAT_OBJ,
		MeshCount:        stats.MeshCount,
		TotalVertexCount: stats.VertexCount,
		FaceCount:        stats.FaceCount,
		Bounds:           boxArray(bounds),
	}, nil
}

// WriteOBJ streams the OBJ rendering of surfaces to w. Surfaces are
// validated first so w receives nothing for malformed input.
func WriteOBJ(w io.Writer, surfaces []*MeshSurface) (*ObjStats, error) {
	if err := validateAll(surfaces); err != nil {
		return nil, err
	}
	return defaultExporter.writeOBJ(w, surfaces)
}

func (e *Exporter) writeOBJ(w io.Writer, surfaces []*MeshSurface) (*ObjStats, error) {
	bw := bufio.NewWriter(w)
	stats := &ObjStats{MeshCount: len(surfaces)}

	bw.WriteString("# Exported from ")
	bw.WriteString(e.generator())
	bw.WriteString("\n# Total meshes: ")
	bw.WriteString(strconv.Itoa(len(surfaces)))
	bw.WriteString("\n\n")

	line := make([]byte, 0, 64)
	// bias is the count of vertices emitted by earlier surfaces.
	var bias uint64
	for i, s := range surfaces {
		n := strconv.Itoa(i + 1)
		bw.WriteString("# Mesh ")
		bw.WriteString(n)
		bw.WriteString("\no Mesh_")
		bw.WriteString(n)
		bw.WriteByte('\n')

		for v := 0; v < s.VertexCount; v++ {
			p, err := s.WorldVertex(v)
			if err != nil {
				return nil, malformed(i+1, err, "vertex %d", v)
			}
			line = append(line[:0], 'v')
			for _, c := range p {
				line = append(line, ' ')
				line = appendFloat(line, c)
			}
			line = append(line, '\n')
			bw.Write(line)
		}

		for f := 0; f < s.FaceCount; f++ {
			tri, err := s.Triangle(f)
			if err != nil {
				return nil, malformed(i+1, err, "face %d", f)
			}
			line = append(line[:0], 'f')
			for _, idx := range tri {
				line = append(line, ' ')
				line = strconv.AppendUint(line, uint64(idx)+1+bias, 10)
			}
			line = append(line, '\n')
			bw.Write(line)
		}

		bias += uint64(s.VertexCount)
		stats.VertexCount += s.VertexCount
		stats.FaceCount += s.FaceCount
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return stats, nil
}

// appendFloat renders f with the fewest digits that read back to the same
// float32, without exponent notation.
func appendFloat(dst []byte, f float32) []byte {
	return strconv.AppendFloat(dst, float64(f), 'f', -1, 32)
}
