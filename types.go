package scanobj

const OBJEXT string = ".obj"
const GLBEXT string = ".glb"
const CAPTUREEXT string = ".scan"

const (
	FORMAT_OBJ = "obj"
	FORMAT_GLB = "glb"
)

// DefaultGenerator is written into the OBJ header and the glTF asset.
const DefaultGenerator = "Scanning App"

const CAPTURE_SIGNATURE string = "scnc"
const CAPTURE_V1 uint32 = 1

const (
	// VERTEX_POSITION_SIZE is the packed x, y, z float32 prefix of a vertex record.
	VERTEX_POSITION_SIZE = 12
	INDICES_PER_TRIANGLE = 3
)

const (
	INDEX_WIDTH_UINT16 = 2
	INDEX_WIDTH_UINT32 = 4
)

// ExportResult describes one written file.
type ExportResult struct {
	Path             string `json:"path" yaml:"path"`
	Format           string `json:"format" yaml:"format"`
	MeshCount        int    `json:"meshCount" yaml:"mesh_count"`
	TotalVertexCount int    `json:"totalVertexCount" yaml:"total_vertex_count"`
	FaceCount        int    `json:"faceCount" yaml:"face_count"`
	Bounds           [6]float64
}
