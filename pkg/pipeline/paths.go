package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewTaskID returns a short random task identifier
func NewTaskID() string {
	return uuid.NewString()[:8]
}

// ValidateTaskID rejects identifiers that could escape the output directory
func ValidateTaskID(taskID string) error {
	if !taskIDPattern.MatchString(taskID) {
		return fmt.Errorf("invalid task id %q", taskID)
	}
	return nil
}

// InputPath is where an uploaded drawing is kept
func InputPath(dir, taskID, ext string) string {
	return filepath.Join(dir, taskID+"_input"+strings.ToLower(ext))
}

// ModelPath is where the generator writes the raw model
func ModelPath(dir, taskID string) string {
	return filepath.Join(dir, taskID+"_model.glb")
}

// STLPath is where the printable model is written
func STLPath(dir, taskID string) string {
	return filepath.Join(dir, taskID+"_model.stl")
}

// PreviewPath is where the rendered thumbnail is written
func PreviewPath(dir, taskID string) string {
	return filepath.Join(dir, taskID+"_preview.png")
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
}

// IsImage reports whether path looks like a drawing rather than a model
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
