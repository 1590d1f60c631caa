package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/copyscale/internal/service"
)

// SearchHandler handles search-related endpoints.
type SearchHandler struct {
	searchService *service.SearchService
	defaultTopK   int
	uploads       uploads
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search service instance.
//   - defaultTopK: matches returned when top_k is absent.
//   - uploadDir: where query uploads wait while they are searched.
//
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService *service.SearchService, defaultTopK int, uploadDir string) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		defaultTopK:   defaultTopK,
		uploads:       newUploads(uploadDir),
	}
}

// Search handles POST /api/v1/search with multipart field "image" and optional "top_k".
func (h *SearchHandler) Search(c *gin.Context) {
	topK := h.defaultTopK
	if raw := c.PostForm("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("top_k must be an integer"))
			return
		}
		topK = v
	}

	query, err := h.uploads.save(c, "image")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer query.Remove()

	matches := h.searchService.Search(c.Request.Context(), query.Path, topK)
	c.JSON(http.StatusOK, gin.H{"matches": matches, "total": len(matches)})
}
