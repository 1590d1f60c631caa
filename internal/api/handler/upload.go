package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// upload is a multipart file saved to a temporary location for analysis.
type upload struct {
	Path     string
	Filename string
}

// Remove deletes the temporary copy.
func (u upload) Remove() {
	if u.Path != "" {
		_ = os.Remove(u.Path)
	}
}

// uploads saves multipart files into dir with unique names.
type uploads struct {
	dir string
}

func newUploads(dir string) uploads {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "copyscale-uploads")
	}
	return uploads{dir: dir}
}

// save stores the form file named field. The caller removes it.
func (u uploads) save(c *gin.Context, field string) (upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return upload{}, fmt.Errorf("missing file field %q", field)
	}
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return upload{}, fmt.Errorf("prepare upload dir: %w", err)
	}
	name := filepath.Base(fh.Filename)
	path := filepath.Join(u.dir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return upload{}, fmt.Errorf("save upload: %w", err)
	}
	return upload{Path: path, Filename: name}, nil
}

// discard removes path if it is a file this uploads dir created.
func (u uploads) discard(path string) {
	dir, err := filepath.Abs(u.dir)
	if err != nil {
		return
	}
	if rel, err := filepath.Rel(dir, path); err != nil || rel != filepath.Base(path) {
		return
	}
	_ = os.Remove(path)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
