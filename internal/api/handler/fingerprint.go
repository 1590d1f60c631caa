package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/repository"
)

// FingerprintHandler manages the registry of reference images.
type FingerprintHandler struct {
	store   *repository.FingerprintStore
	uploads uploads
}

// NewFingerprintHandler creates a new fingerprint handler.
// Parameters:
//   - store: fingerprint store.
//   - uploadDir: where uploads wait while they are embedded.
//
// Returns:
//   - *FingerprintHandler: initialized handler.
func NewFingerprintHandler(store *repository.FingerprintStore, uploadDir string) *FingerprintHandler {
	return &FingerprintHandler{store: store, uploads: newUploads(uploadDir)}
}

type fingerprintView struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
	domain.FingerprintRecord
}

func (h *FingerprintHandler) view(rec domain.FingerprintRecord) fingerprintView {
	return fingerprintView{ID: rec.ID, URL: h.store.OriginalURL(rec), FingerprintRecord: rec}
}

// Register handles POST /api/v1/fingerprints.
// Multipart fields: image (file), title, owner, description.
func (h *FingerprintHandler) Register(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	owner := strings.TrimSpace(c.PostForm("owner"))
	if title == "" || owner == "" {
		badRequest(c, fmt.Errorf("title and owner are required"))
		return
	}

	img, err := h.uploads.save(c, "image")
	if err != nil {
		badRequest(c, err)
		return
	}

	id := domain.FingerprintID(owner, title, img.Filename)
	prev, replacing := h.store.Get(id)

	ok, err := h.store.Register(c.Request.Context(), img.Path, img.Filename, title, owner, c.PostForm("description"))
	// Without object storage the upload itself becomes the stored original.
	if !ok || h.store.CopiesOriginals() {
		img.Remove()
	}
	switch {
	case errors.Is(err, domain.ErrIDCollision):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed: " + err.Error()})
		return
	case !ok:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not extract features from image"})
		return
	}

	rec, _ := h.store.Get(id)
	// The replaced record's upload is no longer referenced.
	if replacing && !h.store.CopiesOriginals() && prev.Path != rec.Path {
		h.uploads.discard(prev.Path)
	}
	c.JSON(http.StatusCreated, h.view(rec))
}

// List handles GET /api/v1/fingerprints.
func (h *FingerprintHandler) List(c *gin.Context) {
	items := []fingerprintView{}
	for rec := range h.store.List() {
		items = append(items, h.view(rec))
	}
	c.JSON(http.StatusOK, gin.H{"fingerprints": items, "total": len(items)})
}

// Remove handles DELETE /api/v1/fingerprints/:id.
func (h *FingerprintHandler) Remove(c *gin.Context) {
	err := h.store.Remove(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Remove failed: " + err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

// Clear handles DELETE /api/v1/fingerprints.
func (h *FingerprintHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Clear failed: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/v1/stats.
func (h *FingerprintHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}
