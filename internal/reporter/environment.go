package reporter

import (
	"runtime"
	"sync"
	"time"

	"github.com/damoang/angple-bugreport/internal/connectivity"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/screenshot"
)

// Environment describes where the user currently is
type Environment interface {
	BrowserInfo() domain.BrowserInfo
	CurrentURL() string
}

// HostEnvironment is an Environment the host keeps up to date
type HostEnvironment struct {
	mu     sync.RWMutex
	info   domain.BrowserInfo
	url    string
	signal connectivity.Signal
}

// NewHostEnvironment 생성자. Online is taken from signal when it is set.
func NewHostEnvironment(info domain.BrowserInfo, signal connectivity.Signal) *HostEnvironment {
	return &HostEnvironment{info: info, signal: signal}
}

// DefaultBrowserInfo describes the local process
func DefaultBrowserInfo(userAgent, language string) domain.BrowserInfo {
	return domain.BrowserInfo{
		UserAgent:      userAgent,
		Language:       language,
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		ScreenWidth:    screenshot.DefaultMaxViewportWidth,
		ScreenHeight:   screenshot.DefaultMaxViewportHeight,
		ViewportWidth:  screenshot.DefaultMaxViewportWidth,
		ViewportHeight: screenshot.DefaultMaxViewportHeight,
		Timezone:       time.Local.String(),
		Online:         true,
	}
}

// SetURL records navigation
func (e *HostEnvironment) SetURL(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.url = url
}

// SetViewport records a resize
func (e *HostEnvironment) SetViewport(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.info.ViewportWidth = width
	e.info.ViewportHeight = height
}

// BrowserInfo implements Environment
func (e *HostEnvironment) BrowserInfo() domain.BrowserInfo {
	e.mu.RLock()
	info := e.info
	e.mu.RUnlock()
	if e.signal != nil {
		info.Online = e.signal.IsOnline()
	}
	return info
}

// CurrentURL implements Environment
func (e *HostEnvironment) CurrentURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.url
}

// Viewport adapts the environment to a screenshot.ViewportSource
func (e *HostEnvironment) Viewport() screenshot.Viewport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return screenshot.Viewport{Width: e.info.ViewportWidth, Height: e.info.ViewportHeight}
}
