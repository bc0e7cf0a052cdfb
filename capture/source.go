package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os/exec"
	"strings"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

const DefaultJPEGQuality = 70

// FrameSource produces one encoded screenshot.
type FrameSource interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// FrameFunc adapts a function to a FrameSource.
type FrameFunc func(ctx context.Context) ([]byte, error)

func (f FrameFunc) CaptureFrame(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Grabber returns the current screen contents as a decoded image.
type Grabber interface {
	Grab(ctx context.Context) (image.Image, error)
}

type GrabFunc func(ctx context.Context) (image.Image, error)

func (f GrabFunc) Grab(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// JPEGSource encodes grabbed images as JPEG.
type JPEGSource struct {
	grabber Grabber
	quality int
}

var _ FrameSource = (*JPEGSource)(nil)

// NewJPEGSource returns a FrameSource encoding at quality, which falls back to
// DefaultJPEGQuality when out of range.
func NewJPEGSource(grabber Grabber, quality int) *JPEGSource {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &JPEGSource{grabber: grabber, quality: quality}
}

func (s *JPEGSource) CaptureFrame(ctx context.Context) ([]byte, error) {
	img, err := s.grabber.Grab(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCaptureFailed, "grab: %v", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCaptureFailed, "encode: %v", err)
	}
	return buf.Bytes(), nil
}

// CommandSource runs an external screenshot tool that writes a PNG, JPEG or
// GIF image to stdout, e.g. "grim -" or "import -window root png:-".
type CommandSource struct {
	args []string
}

var _ Grabber = (*CommandSource)(nil)

func NewCommandSource(args []string) (*CommandSource, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMissingConfig, "capture command")
	}
	return &CommandSource{args: args}, nil
}

func (s *CommandSource) Grab(ctx context.Context) (image.Image, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.args[0], err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s wrote no image", s.args[0])
	}
	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", s.args[0], err)
	}
	return img, nil
}
