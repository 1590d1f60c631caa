package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/copyscale/internal/service"
)

// AnalyzeHandler compares two uploaded images.
type AnalyzeHandler struct {
	analysis *service.AnalysisService
	uploads  uploads
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analysis *service.AnalysisService, uploadDir string) *AnalyzeHandler {
	return &AnalyzeHandler{analysis: analysis, uploads: newUploads(uploadDir)}
}

// Analyze handles POST /api/v1/analyze with multipart fields "query" and "reference".
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	query, err := h.uploads.save(c, "query")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer query.Remove()

	reference, err := h.uploads.save(c, "reference")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer reference.Remove()

	c.JSON(http.StatusOK, h.analysis.Compare(c.Request.Context(), query.Path, reference.Path))
}
