// Package opencv decodes video files with OpenCV through gocv.
package opencv

import (
	"fmt"
	"image"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/video"
	"gocv.io/x/gocv"
)

// Decoder opens local video files.
type Decoder struct{}

var _ video.Decoder = Decoder{}

// Open opens the file at path.
func (Decoder) Open(path string) (video.Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVideoDecode, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: could not open %s", domain.ErrVideoDecode, path)
	}
	return &capture{vc: vc, mat: gocv.NewMat()}, nil
}

type capture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func (c *capture) Info() domain.VideoInfo {
	total := int(c.vc.Get(gocv.VideoCaptureFrameCount))
	fps := c.vc.Get(gocv.VideoCaptureFPS)
	return domain.VideoInfo{
		TotalFrames:     total,
		FPS:             fps,
		DurationSeconds: video.Duration(total, fps),
	}
}

// ReadAt seeks and decodes one frame. gocv converts BGR to RGBA.
func (c *capture) ReadAt(frame int) (image.Image, error) {
	c.vc.Set(gocv.VideoCapturePosFrames, float64(frame))
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("%w: read frame %d", domain.ErrVideoDecode, frame)
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", domain.ErrVideoDecode, frame, err)
	}
	return img, nil
}

func (c *capture) Close() error {
	if err := c.mat.Close(); err != nil {
		c.vc.Close()
		return err
	}
	return c.vc.Close()
}
