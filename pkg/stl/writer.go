package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// headerText fills the binary header. It must not start with "solid" or
// naive readers would take the file for ASCII.
const headerText = "binary STL written by draw3d"

// WriteBinary encodes the model as binary STL. Output depends only on the
// model contents, so identical models produce identical bytes.
func WriteBinary(w io.Writer, model *Model) error {
	bw := bufio.NewWriter(w)

	var header [headerSize]byte
	copy(header[:], headerText)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(model.Triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	var buf [triangleSize]byte
	for i, tri := range model.Triangles {
		putVector(buf[0:12], tri.Normal.X, tri.Normal.Y, tri.Normal.Z)
		putVector(buf[12:24], tri.V1.X, tri.V1.Y, tri.V1.Z)
		putVector(buf[24:36], tri.V2.X, tri.V2.Y, tri.V2.Z)
		putVector(buf[36:48], tri.V3.X, tri.V3.Y, tri.V3.Z)
		binary.LittleEndian.PutUint16(buf[48:50], 0)
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func putVector(b []byte, x, y, z float64) {
	binary.LittleEndian.PutUint32(b[0:4], math32bits(x))
	binary.LittleEndian.PutUint32(b[4:8], math32bits(y))
	binary.LittleEndian.PutUint32(b[8:12], math32bits(z))
}

// WriteFile serializes the mesh to path as binary STL, replacing any existing
// file. The data goes to a temporary file in the same directory first and is
// renamed into place, so readers never observe a half-written model.
func WriteFile(path string, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid mesh: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	name := filepath.Base(path)
	if err := WriteBinary(tmp, FromMesh(name, m)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move STL into place: %w", err)
	}
	return nil
}

// ReadFile parses the STL at path into an indexed mesh
func ReadFile(path string) (*mesh.Mesh, error) {
	model, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return model.ToMesh(), nil
}

func math32bits(f float64) uint32 {
	return math.Float32bits(float32(f))
}
