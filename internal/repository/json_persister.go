package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/timmy/copyscale/internal/domain"
)

// JSONFilePersister keeps the document in a single indented JSON file.
type JSONFilePersister struct {
	path string
}

// NewJSONFilePersister creates a persister for path.
func NewJSONFilePersister(path string) *JSONFilePersister {
	return &JSONFilePersister{path: path}
}

// Path returns the document location.
func (p *JSONFilePersister) Path() string {
	return p.path
}

// Load reads the document. A missing file is an empty document.
func (p *JSONFilePersister) Load(_ context.Context) (Document, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: read %s: %v", domain.ErrStoreIO, p.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: parse %s: %v", domain.ErrStoreIO, p.path, err)
	}
	return doc, nil
}

// Save rewrites the whole file through a temp file and rename.
func (p *JSONFilePersister) Save(_ context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrStoreIO, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("%w: indent: %v", domain.ErrStoreIO, err)
	}
	out.WriteByte('\n')

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrStoreIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".fingerprints-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", domain.ErrStoreIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", domain.ErrStoreIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrStoreIO, tmpName, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", domain.ErrStoreIO, p.path, err)
	}
	return nil
}
