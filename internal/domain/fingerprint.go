package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"path/filepath"
)

// Vector stores a float32 slice as a JSON array in the database.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	var raw []byte
	switch t := value.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("failed to scan Vector")
	}
	return json.Unmarshal(raw, (*[]float32)(v))
}

// FingerprintRecord is one registered reference image.
// Records are replaced wholesale, never patched.
type FingerprintRecord struct {
	ID          string `gorm:"type:text;primaryKey" json:"-"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Owner       string `gorm:"type:text;not null;index:idx_fingerprints_owner" json:"owner"`
	Description string `gorm:"type:text" json:"description"`
	Fingerprint Vector `gorm:"type:text" json:"fingerprint"`
	Path        string `gorm:"type:text" json:"path"`
	ImageID     string `gorm:"type:text" json:"image_id"`
	// Position keeps store enumeration order stable across reloads.
	Position int `gorm:"not null;default:0" json:"-"`
}

// TableName returns the database table name for FingerprintRecord.
func (FingerprintRecord) TableName() string {
	return "fingerprints"
}

// FingerprintID derives the record id from owner, title and the original file name.
// Two registrations with the same triple map to the same id.
func FingerprintID(owner, title, filename string) string {
	return owner + "_" + title + "_" + filepath.Base(filename)
}

// StoreStats summarizes the fingerprint store.
type StoreStats struct {
	TotalImages int      `json:"total_images"`
	Owners      []string `json:"owners"`
}

// Match is one ranked hit from a store search.
type Match struct {
	ImageID     string           `json:"image_id"`
	Similarity  float64          `json:"similarity"`
	Title       string           `json:"title"`
	Owner       string           `json:"owner"`
	Description string           `json:"description"`
	Path        string           `json:"path"`
	Analysis    SimilarityResult `json:"full_analysis"`
}
