package scanobj

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// maxCaptureBlob bounds a single buffer read from a capture so a corrupt
// length field cannot force a huge allocation.
const maxCaptureBlob = 1 << 31

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

func writeBlob(wt io.Writer, b []byte) error {
	if err := writeLittleByte(wt, uint32(len(b))); err != nil {
		return err
	}
	_, err := wt.Write(b)
	return err
}

func readBlob(rd io.Reader) ([]byte, error) {
	var size uint32
	if err := readLittleByte(rd, &size); err != nil {
		return nil, err
	}
	if uint64(size) > maxCaptureBlob {
		return nil, errors.Errorf("blob of %d bytes exceeds limit", size)
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(rd, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SurfaceMarshal writes one surface record. The transform goes first,
// column by column.
func SurfaceMarshal(wt io.Writer, s *MeshSurface) error {
	for c := range s.Transform {
		if err := writeLittleByte(wt, s.Transform[c][:]); err != nil {
			return err
		}
	}
	if err := writeLittleByte(wt, []uint32{uint32(s.VertexCount), uint32(s.VertexStride)}); err != nil {
		return err
	}
	if err := writeBlob(wt, s.VertexBuffer); err != nil {
		return err
	}
	if err := writeLittleByte(wt, []uint32{uint32(s.FaceCount), uint32(s.IndexWidth)}); err != nil {
		return err
	}
	return writeBlob(wt, s.IndexBuffer)
}

func SurfaceUnMarshal(rd io.Reader) (*MeshSurface, error) {
	s := &MeshSurface{}
	for c := range s.Transform {
		if err := readLittleByte(rd, s.Transform[c][:]); err != nil {
			return nil, errors.Wrap(err, "transform")
		}
	}
	var head [2]uint32
	if err := readLittleByte(rd, &head); err != nil {
		return nil, errors.Wrap(err, "vertex header")
	}
	s.VertexCount, s.VertexStride = int(head[0]), int(head[1])
	var err error
	if s.VertexBuffer, err = readBlob(rd); err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}
	if err := readLittleByte(rd, &head); err != nil {
		return nil, errors.Wrap(err, "index header")
	}
	s.FaceCount, s.IndexWidth = int(head[0]), int(head[1])
	if s.IndexBuffer, err = readBlob(rd); err != nil {
		return nil, errors.Wrap(err, "index buffer")
	}
	return s, nil
}

// CaptureMarshal writes a capture archive holding surfaces in order.
func CaptureMarshal(wt io.Writer, surfaces []*MeshSurface) error {
	if _, err := wt.Write([]byte(CAPTURE_SIGNATURE)); err != nil {
		return err
	}
	if err := writeLittleByte(wt, CAPTURE_V1); err != nil {
		return err
	}
	if err := writeLittleByte(wt, uint32(len(surfaces))); err != nil {
		return err
	}
	for i, s := range surfaces {
		if err := SurfaceMarshal(wt, s); err != nil {
			return errors.Wrapf(err, "scanobj: write surface %d", i+1)
		}
	}
	return nil
}

// CaptureUnMarshal reads a capture archive. Truncated or foreign input
// returns an error and no surfaces.
func CaptureUnMarshal(rd io.Reader) ([]*MeshSurface, error) {
	sig := make([]byte, len(CAPTURE_SIGNATURE))
	if _, err := io.ReadFull(rd, sig); err != nil {
		return nil, errors.Wrap(err, "scanobj: read capture signature")
	}
	if string(sig) != CAPTURE_SIGNATURE {
		return nil, errors.Errorf("scanobj: bad capture signature %q", sig)
	}
	var version, size uint32
	if err := readLittleByte(rd, &version); err != nil {
		return nil, errors.Wrap(err, "scanobj: read capture version")
	}
	if version != CAPTURE_V1 {
		return nil, errors.Errorf("scanobj: unsupported capture version %d", version)
	}
	if err := readLittleByte(rd, &size); err != nil {
		return nil, errors.Wrap(err, "scanobj: read surface count")
	}
	surfaces := make([]*MeshSurface, 0, minInt(int(size), 1024))
	for i := 0; i < int(size); i++ {
		s, err := SurfaceUnMarshal(rd)
		if err != nil {
			return nil, errors.Wrapf(err, "scanobj: read surface %d", i+1)
		}
		surfaces = append(surfaces, s)
	}
	return surfaces, nil
}

func CaptureReadFrom(path string) ([]*MeshSurface, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return CaptureUnMarshal(bufio.NewReader(f))
}

func CaptureWriteTo(path string, surfaces []*MeshSurface) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	f, e := os.Create(path)
	if e != nil {
		return e
	}
	bw := bufio.NewWriter(f)
	if err := CaptureMarshal(bw, surfaces); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// LoadSurfaces reads a capture archive or a glTF file, chosen by extension.
func LoadSurfaces(path string) ([]*MeshSurface, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case CAPTUREEXT:
		return CaptureReadFrom(path)
	case GLBEXT, ".gltf":
		return ReadGltfSurfaces(path)
	default:
		return nil, errors.Errorf("scanobj: unsupported input %s", path)
	}
}
