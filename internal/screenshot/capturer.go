package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// 기본 캡처 설정
const (
	DefaultMaxViewportWidth  = 1920
	DefaultMaxViewportHeight = 1080
	DefaultMaxWidth          = 1280
	DefaultQuality           = 0.7
	DefaultFallbackQuality   = 0.4
	DefaultMaxBytes          = 500_000
)

// ViewportSource reports the current viewport size
type ViewportSource func() Viewport

// Options tune the capture
type Options struct {
	MaxViewport     Viewport
	MaxWidth        int
	Quality         float64
	FallbackQuality float64
	MaxBytes        int
	// Timeout bounds a single capture; 0 means none
	Timeout time.Duration
	// OnFailure is called with the cause whenever Capture returns nil
	OnFailure func(err error)
}

// DefaultOptions returns the standard capture settings
func DefaultOptions() Options {
	return Options{
		MaxViewport:     Viewport{Width: DefaultMaxViewportWidth, Height: DefaultMaxViewportHeight},
		MaxWidth:        DefaultMaxWidth,
		Quality:         DefaultQuality,
		FallbackQuality: DefaultFallbackQuality,
		MaxBytes:        DefaultMaxBytes,
	}
}

// Capturer renders the visible page into a size-bounded JPEG data URI
type Capturer struct {
	rasterizer Rasterizer
	viewport   ViewportSource
	opts       Options
	logger     zerolog.Logger
}

// NewCapturer 생성자. Zero-valued options fall back to the defaults.
func NewCapturer(r Rasterizer, viewport ViewportSource, opts Options, logger zerolog.Logger) *Capturer {
	def := DefaultOptions()
	if opts.MaxViewport.Width <= 0 {
		opts.MaxViewport.Width = def.MaxViewport.Width
	}
	if opts.MaxViewport.Height <= 0 {
		opts.MaxViewport.Height = def.MaxViewport.Height
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.Quality <= 0 {
		opts.Quality = def.Quality
	}
	if opts.FallbackQuality <= 0 {
		opts.FallbackQuality = def.FallbackQuality
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if viewport == nil {
		viewport = func() Viewport { return opts.MaxViewport }
	}
	return &Capturer{rasterizer: r, viewport: viewport, opts: opts, logger: logger}
}

// Capture returns the encoded screenshot, or nil when anything fails.
// It never panics.
func (c *Capturer) Capture(ctx context.Context) (uri *string) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(fmt.Errorf("screenshot: rasterizer panic: %v", r))
			uri = nil
		}
	}()

	if c.rasterizer == nil {
		c.fail(fmt.Errorf("screenshot: no rasterizer"))
		return nil
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	surface, err := c.rasterizer.Rasterize(ctx, c.ClampViewport(c.viewport()))
	if err != nil {
		c.fail(err)
		return nil
	}
	if surface == nil || surface.Width() <= 0 || surface.Height() <= 0 {
		c.fail(fmt.Errorf("screenshot: empty surface"))
		return nil
	}

	surface, err = c.downscale(surface)
	if err != nil {
		c.fail(err)
		return nil
	}

	encoded, err := surface.Encode(c.opts.Quality)
	if err != nil {
		c.fail(err)
		return nil
	}
	if len(encoded) > c.opts.MaxBytes {
		// 한 번만 낮은 품질로 재인코딩하고 크기와 무관하게 사용
		smaller, err := surface.Encode(c.opts.FallbackQuality)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.logger.Debug().Int("first", len(encoded)).Int("second", len(smaller)).Msg("screenshot re-encoded at lower quality")
		encoded = smaller
	}
	return &encoded
}

// ClampViewport limits vp to the configured maximum
func (c *Capturer) ClampViewport(vp Viewport) Viewport {
	if vp.Width <= 0 || vp.Width > c.opts.MaxViewport.Width {
		vp.Width = c.opts.MaxViewport.Width
	}
	if vp.Height <= 0 || vp.Height > c.opts.MaxViewport.Height {
		vp.Height = c.opts.MaxViewport.Height
	}
	return vp
}

func (c *Capturer) downscale(s Surface) (Surface, error) {
	if s.Width() <= c.opts.MaxWidth {
		return s, nil
	}
	scalable, ok := s.(Scalable)
	if !ok {
		return nil, fmt.Errorf("screenshot: %dpx surface cannot be downscaled", s.Width())
	}
	h := s.Height() * c.opts.MaxWidth / s.Width()
	if h < 1 {
		h = 1
	}
	return scalable.Resize(c.opts.MaxWidth, h), nil
}

func (c *Capturer) fail(err error) {
	c.logger.Warn().Err(err).Msg("screenshot capture failed")
	if c.opts.OnFailure != nil {
		c.opts.OnFailure(err)
	}
}
