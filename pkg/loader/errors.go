package loader

import (
	"errors"
	"fmt"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// ErrUnsupportedFormat is wrapped by LoadError for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported model format")

// LoadError reports a file that is missing, unreadable or not parseable
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// EmptySceneError reports a multi-object file without any triangulated member
type EmptySceneError struct {
	Path string
}

func (e *EmptySceneError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, mesh.ErrEmptyScene)
}

// Is lets errors.Is match mesh.ErrEmptyScene
func (e *EmptySceneError) Is(target error) bool {
	return target == mesh.ErrEmptyScene
}
