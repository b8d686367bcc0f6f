// Package loader reads model files into the unified mesh representation.
//
// Scene formats (glTF, OBJ) are read as a transient mesh.Scene and flattened
// into a single mesh. STL files hold one object and pass straight through.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nQrChao/kids-draw-3d/pkg/gltfmesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
	"github.com/nQrChao/kids-draw-3d/pkg/stl"
)

// Extensions lists the file extensions Load understands
var Extensions = []string{".glb", ".gltf", ".obj", ".stl"}

// Supported reports whether path has a loadable extension
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads path and returns one flattened mesh. Failures are *LoadError or
// *EmptySceneError.
func Load(path string) (*mesh.Mesh, error) {
	scene, err := LoadScene(path)
	if err != nil {
		return nil, err
	}

	switch scene.Len() {
	case 0:
		return nil, &EmptySceneError{Path: path}
	case 1:
		m, _ := scene.Get(scene.Names()[0])
		return m, nil
	}

	m, err := scene.Flatten()
	if errors.Is(err, mesh.ErrEmptyScene) {
		return nil, &EmptySceneError{Path: path}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return m, nil
}

// LoadScene reads path without flattening, for inspection
func LoadScene(path string) (*mesh.Scene, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	var scene *mesh.Scene
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".glb", ".gltf":
		scene, err = gltfmesh.ReadScene(path)
	case ".obj":
		scene, err = readOBJ(path)
	case ".stl":
		scene, err = readSTL(path)
	default:
		err = fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return scene, nil
}

func readSTL(path string) (*mesh.Scene, error) {
	model, err := stl.Parse(path)
	if err != nil {
		return nil, err
	}

	name := model.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	scene := mesh.NewScene()
	scene.Add(name, model.ToMesh())
	return scene, nil
}
