package video

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/copyscale/internal/domain"
)

type fakeCapture struct {
	info   domain.VideoInfo
	broken map[int]bool
	reads  []int
	closed bool
}

func (c *fakeCapture) Info() domain.VideoInfo { return c.info }

func (c *fakeCapture) ReadAt(frame int) (image.Image, error) {
	c.reads = append(c.reads, frame)
	if c.broken[frame] {
		return nil, domain.ErrVideoDecode
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (c *fakeCapture) Close() error {
	c.closed = true
	return nil
}

type fakeDecoder struct {
	capture *fakeCapture
	err     error
}

func (d fakeDecoder) Open(string) (Capture, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.capture, nil
}

func sixteenSeconds() *fakeCapture {
	return &fakeCapture{info: domain.VideoInfo{TotalFrames: 480, FPS: 30}}
}

func TestOffsetsEvenlySpaced(t *testing.T) {
	offsets := Offsets(8, 480, 30)
	require.Len(t, offsets, 8)
	for i, off := range offsets {
		assert.Equal(t, i, off.Index)
		assert.InDelta(t, float64(2*i), off.TimeSeconds, 1e-9)
		assert.Equal(t, 60*i, off.FrameNumber)
	}
}

func TestOffsetsEdgeCases(t *testing.T) {
	assert.Empty(t, Offsets(0, 480, 30))
	assert.Empty(t, Offsets(-1, 480, 30))

	for _, off := range Offsets(4, 100, 0) {
		assert.Zero(t, off.TimeSeconds, "unknown fps collapses to t=0")
		assert.Zero(t, off.FrameNumber)
	}

	offsets := Offsets(3, 10, 3)
	assert.Equal(t, []int{0, 3, 6}, []int{offsets[0].FrameNumber, offsets[1].FrameNumber, offsets[2].FrameNumber})
}

func TestSampleSkipsUnreadableFrames(t *testing.T) {
	capture := sixteenSeconds()
	capture.broken = map[int]bool{120: true}

	frames, info, err := NewSampler(fakeDecoder{capture: capture}, "").Sample(context.Background(), "clip.mp4", 8)
	require.NoError(t, err)

	assert.InDelta(t, 16.0, info.DurationSeconds, 1e-9)
	assert.True(t, capture.closed)
	require.Len(t, frames, 7)

	var times []float64
	for _, f := range frames {
		times = append(times, f.TimeSeconds)
		assert.Empty(t, f.TempPath)
		assert.NotNil(t, f.Image)
	}
	assert.Equal(t, []float64{0, 2, 6, 8, 10, 12, 14}, times)
	assert.Equal(t, 3, frames[2].Index, "indices keep their sample position")
}

func TestSampleNonPositiveCountReturnsNothing(t *testing.T) {
	for _, n := range []int{0, -3} {
		frames, info, err := NewSampler(fakeDecoder{capture: sixteenSeconds()}, "").Sample(context.Background(), "clip.mp4", n)
		require.NoError(t, err)
		assert.NotNil(t, frames)
		assert.Empty(t, frames, "n=%d", n)
		assert.Equal(t, domain.VideoInfo{}, info)
	}
}

func TestSampleOpenFailure(t *testing.T) {
	frames, _, err := NewSampler(fakeDecoder{err: errors.New("no codec")}, "").Sample(context.Background(), "clip.mp4", 8)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, domain.ErrVideoDecode))
}

func TestSampleSpillsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	frames, _, err := NewSampler(fakeDecoder{capture: sixteenSeconds()}, dir).Sample(context.Background(), "clip.mp4", 2)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.NotEqual(t, frames[0].TempPath, frames[1].TempPath)
	for _, f := range frames {
		_, err := os.Stat(f.TempPath)
		assert.NoError(t, err)
	}

	Cleanup(frames)
	for _, f := range frames {
		_, err := os.Stat(f.TempPath)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestSampleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames, _, err := NewSampler(fakeDecoder{capture: sixteenSeconds()}, "").Sample(ctx, "clip.mp4", 8)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, frames)
}

func TestIsSupported(t *testing.T) {
	for name, want := range map[string]bool{
		"a.mp4": true, "b.MOV": true, "c.mkv": true, "d.avi": true,
		"e.webm": false, "f": false, "g.png": false,
	} {
		assert.Equal(t, want, IsSupported(name), name)
	}
}
