// Package export writes terrain meshes and sampled areas to interchange formats.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/logger"
	"github.com/Faultbox/geomesh/internal/terrain"
)

// WriteOBJ writes m as a Wavefront OBJ with positions, texture coordinates and normals.
// Faces keep the mesh winding and use 1-based v/vt/vn triples.
func WriteOBJ(w io.Writer, m *terrain.Mesh) error {
	bw := bufio.NewWriter(w)

	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}
	for _, v := range m.Vertices {
		bw.WriteString("v " + formatFloats(v.Position[:]) + "\n")
	}
	for _, v := range m.Vertices {
		bw.WriteString("vt " + formatFloats(v.TexCoord[:]) + "\n")
	}
	for _, v := range m.Vertices {
		bw.WriteString("vn " + formatFloats(v.Normal[:]) + "\n")
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}

func formatFloats(values []float32) string {
	buf := make([]byte, 0, len(values)*12)
	for i, f := range values {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'f', 6, 32)
	}
	return string(buf)
}

// OBJSurface publishes every mesh it receives to an OBJ file, replacing the previous one.
type OBJSurface struct {
	Path      string
	published int
}

// NewOBJSurface creates a surface writing to path.
func NewOBJSurface(path string) *OBJSurface {
	return &OBJSurface{Path: path}
}

// Publish writes mesh to a temporary file next to Path and renames it into place.
func (s *OBJSurface) Publish(mesh *terrain.Mesh) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".geomesh-*.obj")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteOBJ(tmp, mesh); err != nil {
		tmp.Close()
		return fmt.Errorf("writing obj: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing obj: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.Path, err)
	}

	s.published++
	logger.Named("export").Info("wrote mesh",
		zap.String("path", s.Path),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("revision", s.published))
	return nil
}

// Published returns how many meshes have been written.
func (s *OBJSurface) Published() int {
	return s.published
}
