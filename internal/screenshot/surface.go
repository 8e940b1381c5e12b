package screenshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"golang.org/x/image/draw"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// Viewport is the visible area to rasterize, in CSS pixels
type Viewport struct {
	Width  int
	Height int
}

// Surface is a rasterized page
type Surface interface {
	Width() int
	Height() int
	// Encode returns a data URI at quality in (0, 1]
	Encode(quality float64) (string, error)
}

// Scalable surfaces can be downscaled before encoding
type Scalable interface {
	Surface
	Resize(width, height int) Surface
}

// Rasterizer renders the current page
type Rasterizer interface {
	Rasterize(ctx context.Context, vp Viewport) (Surface, error)
}

// ImageSurface is a Surface backed by an image.Image, encoded as JPEG
type ImageSurface struct {
	img image.Image
}

// NewImageSurface 생성자
func NewImageSurface(img image.Image) *ImageSurface {
	return &ImageSurface{img: img}
}

func (s *ImageSurface) Width() int  { return s.img.Bounds().Dx() }
func (s *ImageSurface) Height() int { return s.img.Bounds().Dy() }

// Encode implements Surface
func (s *ImageSurface) Encode(quality float64) (string, error) {
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: q}); err != nil {
		return "", fmt.Errorf("screenshot: jpeg encode: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Resize implements Scalable using Catmull-Rom resampling
func (s *ImageSurface) Resize(width, height int) Surface {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), draw.Over, nil)
	return &ImageSurface{img: dst}
}

// StaticRasterizer always returns the same image, e.g. a frame buffer the
// host already holds.
type StaticRasterizer struct {
	Img image.Image
}

// Rasterize implements Rasterizer. The image is cropped to the viewport.
func (r StaticRasterizer) Rasterize(_ context.Context, vp Viewport) (Surface, error) {
	if r.Img == nil {
		return nil, fmt.Errorf("screenshot: no frame available")
	}
	b := r.Img.Bounds()
	if vp.Width > 0 && vp.Height > 0 && (b.Dx() > vp.Width || b.Dy() > vp.Height) {
		if sub, ok := r.Img.(interface {
			SubImage(image.Rectangle) image.Image
		}); ok {
			w, h := min(b.Dx(), vp.Width), min(b.Dy(), vp.Height)
			return NewImageSurface(sub.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h))), nil
		}
	}
	return NewImageSurface(r.Img), nil
}

// DataURIBytes returns the raw JPEG bytes of a data URI produced by ImageSurface.Encode
func DataURIBytes(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, fmt.Errorf("screenshot: not a jpeg data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, fmt.Errorf("screenshot: decode base64: %w", err)
	}
	return raw, nil
}

