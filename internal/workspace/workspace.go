// Package workspace provisions the per-session folders a scan writes into.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	scansDir  = "Scans"
	imagesDir = "Images"
	modelsDir = "Models"
)

// Session is one capture's folder tree: <root>/Scans/<timestamp>/{Images,Models}.
type Session struct {
	Dir    string
	Images string
	Models string
}

// NewSession creates the folders for a capture started at now.
func NewSession(root string, now time.Time) (*Session, error) {
	dir := filepath.Join(root, scansDir, Timestamp(now))
	s := &Session{
		Dir:    dir,
		Images: filepath.Join(dir, imagesDir),
		Models: filepath.Join(dir, modelsDir),
	}
	for _, d := range []string{s.Images, s.Models} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, errors.Wrapf(err, "create %s", d)
		}
	}
	return s, nil
}

// Timestamp formats now as UTC ISO 8601 with the colons replaced, so the
// name is a valid path element everywhere.
func Timestamp(now time.Time) string {
	return strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05Z"), ":", "-")
}

// ModelPath names a model file written at now, e.g. Models/scan_1732000000.obj.
func (s *Session) ModelPath(prefix, ext string, now time.Time) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(s.Models, fmt.Sprintf("%s_%d%s", prefix, now.Unix(), ext))
}
