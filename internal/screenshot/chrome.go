package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PageURLSource returns the URL currently shown to the user
type PageURLSource func() string

// ChromeRasterizer renders the page in headless Chrome
type ChromeRasterizer struct {
	pageURL      PageURLSource
	settle       time.Duration
	allocContext context.Context
	cancelAlloc  context.CancelFunc
}

// NewChromeRasterizer starts a Chrome allocator. Call Close when done.
func NewChromeRasterizer(pageURL PageURLSource, userAgent string) *ChromeRasterizer {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(DefaultMaxViewportWidth, DefaultMaxViewportHeight),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRasterizer{
		pageURL:      pageURL,
		settle:       500 * time.Millisecond,
		allocContext: allocContext,
		cancelAlloc:  cancelAlloc,
	}
}

// Close shuts the browser down
func (r *ChromeRasterizer) Close() {
	r.cancelAlloc()
}

// Rasterize implements Rasterizer
func (r *ChromeRasterizer) Rasterize(ctx context.Context, vp Viewport) (Surface, error) {
	target := r.pageURL()
	if target == "" {
		return nil, fmt.Errorf("screenshot: no page url")
	}

	tabCtx, cancel := chromedp.NewContext(r.allocContext)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), 1, false).Do(ctx)
		}),
		chromedp.Navigate(target),
		chromedp.Sleep(r.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot: chrome capture %s: %w", target, err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("screenshot: decode png: %w", err)
	}
	return NewImageSurface(img), nil
}
