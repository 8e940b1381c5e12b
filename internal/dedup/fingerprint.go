package dedup

import (
	"strings"
	"sync"
	"time"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/jonboulle/clockwork"
)

// DefaultWindow 같은 에러를 다시 알리지 않는 기간
const DefaultWindow = 60 * time.Second

// Cache suppresses structurally identical errors seen within the window.
// Entries are never deleted; the map grows with the number of distinct
// errors in the session.
type Cache struct {
	mu       sync.Mutex
	lastSeen map[string]int64 // fingerprint -> unix ms
	window   time.Duration
	clock    clockwork.Clock
}

// NewCache creates a fingerprint cache
func NewCache(window time.Duration, clock clockwork.Clock) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		lastSeen: make(map[string]int64),
		window:   window,
		clock:    clock,
	}
}

// ShouldSuppress reports whether the error was already seen inside the
// window. A fresh sighting is recorded and lets the error through.
func (c *Cache) ShouldSuppress(e domain.ErrorEvent) bool {
	key := Fingerprint(e)
	now := c.clock.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastSeen[key]; ok && now-last < c.window.Milliseconds() {
		return true
	}
	c.lastSeen[key] = now
	return false
}

// Len returns the number of tracked fingerprints
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastSeen)
}

// Fingerprint returns message + "::" + the trimmed first stack frame
func Fingerprint(e domain.ErrorEvent) string {
	return e.Message + "::" + FirstFrame(e.StackOrEmpty())
}

// FirstFrame returns the first line of a stack trace that looks like a frame.
// JS-style stacks repeat the message on line one ("TypeError: ...") and Go
// stacks start with "goroutine N [running]:", both are skipped.
func FirstFrame(stack string) string {
	lines := strings.Split(stack, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "at ") || strings.Contains(line, "@") {
			return line
		}
		if strings.HasPrefix(line, "goroutine ") {
			continue
		}
		// Go frames come as "pkg.Func(...)" followed by "\tfile:line"
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
			return line + " " + strings.TrimSpace(lines[i+1])
		}
		if looksLikeMessage(line) {
			continue
		}
		return line
	}
	return ""
}

func looksLikeMessage(line string) bool {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return false
	}
	head := line[:idx]
	return strings.HasSuffix(head, "Error") || strings.HasSuffix(head, "Exception") || head == "Uncaught"
}
