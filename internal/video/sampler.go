// Package video samples evenly spaced frames from video files.
package video

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/imaging"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
)

// DefaultFrames is the frame count VideoService samples when none is configured.
const DefaultFrames = 8

const frameJPEGQuality = 95

// SupportedFormats lists the container extensions accepted for upload.
var SupportedFormats = []string{".mp4", ".avi", ".mov", ".mkv"}

// IsSupported reports whether name has a supported video extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range SupportedFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// Decoder opens videos for random frame access.
type Decoder interface {
	Open(locator string) (Capture, error)
}

// Capture is an open video.
type Capture interface {
	Info() domain.VideoInfo
	// ReadAt seeks to frame and decodes it.
	ReadAt(frame int) (image.Image, error)
	Close() error
}

// Offset is the position of one sample.
type Offset struct {
	Index       int
	FrameNumber int
	TimeSeconds float64
}

// Offsets spreads n samples evenly over the video, starting at t=0.
// Sample i sits at i/n of the duration, on frame floor(t*fps).
func Offsets(n, totalFrames int, fps float64) []Offset {
	if n <= 0 {
		return nil
	}
	duration := Duration(totalFrames, fps)
	out := make([]Offset, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n) * duration
		out[i] = Offset{Index: i, FrameNumber: int(math.Floor(t * fps)), TimeSeconds: t}
	}
	return out
}

// Duration is totalFrames/fps, or 0 when fps is unknown.
func Duration(totalFrames int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(totalFrames) / fps
}

// Sampler extracts frames through a Decoder.
type Sampler struct {
	decoder Decoder
	// tempDir receives spilled JPEG frames. Empty disables spilling.
	tempDir string
}

// NewSampler creates a Sampler. When tempDir is non-empty each frame is also
// written there as a JPEG and FrameSample.TempPath is set.
func NewSampler(decoder Decoder, tempDir string) *Sampler {
	return &Sampler{decoder: decoder, tempDir: tempDir}
}

// Sample reads n frames from the video at locator. Frames that cannot be read
// are skipped, so fewer than n samples may be returned. An error is returned
// only when the video cannot be opened or ctx is done; in the latter case the
// frames read so far are returned too.
// n <= 0 returns no frames without opening the video.
func (s *Sampler) Sample(ctx context.Context, locator string, n int) ([]domain.FrameSample, domain.VideoInfo, error) {
	if n <= 0 {
		return []domain.FrameSample{}, domain.VideoInfo{}, nil
	}
	ctx = logger.WithField(ctx, logger.FieldVideo, locator)

	capture, err := s.decoder.Open(locator)
	if err != nil {
		return nil, domain.VideoInfo{}, fmt.Errorf("%w: open %s: %v", domain.ErrVideoDecode, locator, err)
	}
	defer capture.Close()

	info := capture.Info()
	if info.DurationSeconds == 0 {
		info.DurationSeconds = Duration(info.TotalFrames, info.FPS)
	}
	logger.CtxInfo(ctx, "Video info: %d frames, %.1fs duration, %.1f FPS", info.TotalFrames, info.DurationSeconds, info.FPS)

	frames := make([]domain.FrameSample, 0, n)
	for _, off := range Offsets(n, info.TotalFrames, info.FPS) {
		if err := ctx.Err(); err != nil {
			return frames, info, err
		}

		img, err := capture.ReadAt(off.FrameNumber)
		if err != nil {
			metrics.VideoFramesTotal.WithLabelValues("skipped").Inc()
			logger.With(logger.Fields{logger.FieldFrame: off.FrameNumber}).Warn(ctx, "Skipping unreadable frame: %v", err)
			continue
		}

		sample := domain.FrameSample{
			Index:       off.Index,
			FrameNumber: off.FrameNumber,
			TimeSeconds: off.TimeSeconds,
			Image:       img,
		}
		if s.tempDir != "" {
			path, err := s.spill(img)
			if err != nil {
				metrics.VideoFramesTotal.WithLabelValues("skipped").Inc()
				logger.With(logger.Fields{logger.FieldFrame: off.FrameNumber}).Warn(ctx, "Skipping frame, spill failed: %v", err)
				continue
			}
			sample.TempPath = path
		}
		metrics.VideoFramesTotal.WithLabelValues("ok").Inc()
		frames = append(frames, sample)
	}

	logger.With(nil).WithCount(len(frames)).Info(ctx, "Extracted keyframes")
	return frames, info, nil
}

func (s *Sampler) spill(img image.Image) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create frame dir: %w", err)
	}
	path := filepath.Join(s.tempDir, "video_frame_"+uuid.NewString()+".jpg")
	if err := imaging.WriteJPEG(path, img, frameJPEGQuality); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup removes spilled frame files. Missing files are ignored.
func Cleanup(frames []domain.FrameSample) {
	for _, f := range frames {
		if f.TempPath != "" {
			_ = os.Remove(f.TempPath)
		}
	}
}
