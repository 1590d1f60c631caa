package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/copyscale/internal/service"
	"github.com/timmy/copyscale/internal/video"
)

// VideoHandler runs frame-level matching on uploaded videos.
type VideoHandler struct {
	videoService *service.VideoService
	uploads      uploads
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(videoService *service.VideoService, uploadDir string) *VideoHandler {
	return &VideoHandler{videoService: videoService, uploads: newUploads(uploadDir)}
}

func (h *VideoHandler) saveVideo(c *gin.Context) (upload, bool) {
	fh, err := c.FormFile("video")
	if err != nil {
		badRequest(c, fmt.Errorf("missing file field %q", "video"))
		return upload{}, false
	}
	if !video.IsSupported(fh.Filename) {
		badRequest(c, fmt.Errorf("unsupported video format, expected one of %s", strings.Join(video.SupportedFormats, " ")))
		return upload{}, false
	}
	v, err := h.uploads.save(c, "video")
	if err != nil {
		badRequest(c, err)
		return upload{}, false
	}
	return v, true
}

// MatchReference handles POST /api/v1/video/reference with fields "video" and "reference".
func (h *VideoHandler) MatchReference(c *gin.Context) {
	v, ok := h.saveVideo(c)
	if !ok {
		return
	}
	defer v.Remove()

	ref, err := h.uploads.save(c, "reference")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer ref.Remove()

	c.JSON(http.StatusOK, h.videoService.MatchAgainstReference(c.Request.Context(), v.Path, ref.Path))
}

// ScanStore handles POST /api/v1/video/scan with field "video" and optional "matches_per_frame".
func (h *VideoHandler) ScanStore(c *gin.Context) {
	perFrame := 0
	if raw := c.PostForm("matches_per_frame"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("matches_per_frame must be an integer"))
			return
		}
		perFrame = n
	}

	v, ok := h.saveVideo(c)
	if !ok {
		return
	}
	defer v.Remove()

	c.JSON(http.StatusOK, h.videoService.MatchAgainstStore(c.Request.Context(), v.Path, perFrame))
}
