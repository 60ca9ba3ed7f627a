// Package catalog keeps the list of exported scan models in a YAML file.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	scanobj "github.com/flywave/go-scanobj"
)

// ErrNotFound is returned by Get and Remove for unknown IDs.
var ErrNotFound = errors.New("catalog: record not found")

// Record describes one exported model.
type Record struct {
	ID          string    `yaml:"id"`
	FileName    string    `yaml:"file_name"`
	FilePath    string    `yaml:"file_path"`
	Format      string    `yaml:"format"`
	CreatedAt   time.Time `yaml:"created_at"`
	MeshCount   int       `yaml:"mesh_count"`
	VertexCount int       `yaml:"vertex_count"`
	FaceCount   int       `yaml:"face_count"`
}

type document struct {
	Records []*Record `yaml:"records"`
}

// Catalog is a YAML-backed record list. It is safe for concurrent use
// within one process.
type Catalog struct {
	path    string
	mu      sync.Mutex
	records []*Record
}

// Open loads the catalog at path. A missing file is an empty catalog.
func Open(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: read %s", path)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "catalog: parse %s", path)
	}
	c.records = doc.Records
	return c, nil
}

func (c *Catalog) Path() string { return c.path }

// Add records an export result created at now and returns the new record.
func (c *Catalog) Add(res *scanobj.ExportResult, now time.Time) *Record {
	rec := &Record{
		ID:          uuid.NewString(),
		FileName:    filepath.Base(res.Path),
		FilePath:    res.Path,
		Format:      res.Format,
		CreatedAt:   now,
		MeshCount:   res.MeshCount,
		VertexCount: res.TotalVertexCount,
		FaceCount:   res.FaceCount,
	}
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return rec
}

// List returns copies of the records, newest first.
func (c *Catalog) List() []Record {
	c.mu.Lock()
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, *r)
	}
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (c *Catalog) Get(id string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			return *r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Remove drops the record with id. The model file itself is left alone.
func (c *Catalog) Remove(id string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return *r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Save writes the catalog through a uniquely named temporary file and a
// rename.
func (c *Catalog) Save() error {
	c.mu.Lock()
	data, err := yaml.Marshal(&document{Records: c.records})
	c.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "catalog: encode")
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "catalog: create dir")
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "catalog: create temp")
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "catalog: write")
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "catalog: write")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "catalog: write")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "catalog: replace")
	}
	return nil
}
