package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultProbeInterval 헬스 체크 주기
const DefaultProbeInterval = 10 * time.Second

// Probe polls a health URL and treats any response below 500 as online.
// Transitions are published to the Publisher.
type Probe struct {
	url      string
	interval time.Duration
	client   *http.Client
	clock    clockwork.Clock
	pub      Publisher
	logger   zerolog.Logger

	mu      sync.RWMutex
	online  bool
	checked bool
}

// ProbeOption configures a Probe
type ProbeOption func(*Probe)

// WithClient overrides the HTTP client
func WithClient(c *http.Client) ProbeOption {
	return func(p *Probe) { p.client = c }
}

// WithClock overrides the ticker clock
func WithClock(c clockwork.Clock) ProbeOption {
	return func(p *Probe) { p.clock = c }
}

// NewProbe 생성자
func NewProbe(url string, interval time.Duration, pub Publisher, logger zerolog.Logger, opts ...ProbeOption) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	p := &Probe{
		url:      url,
		interval: interval,
		client:   cleanhttp.DefaultPooledClient(),
		clock:    clockwork.NewRealClock(),
		pub:      pub,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client.Timeout == 0 {
		p.client.Timeout = 5 * time.Second
	}
	return p
}

// IsOnline implements Signal. Before the first check the probe reports offline.
func (p *Probe) IsOnline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

// Check runs one probe and returns the resulting state
func (p *Probe) Check(ctx context.Context) bool {
	online := p.reachable(ctx)

	p.mu.Lock()
	changed := !p.checked || p.online != online
	first := !p.checked
	p.online = online
	p.checked = true
	p.mu.Unlock()

	if changed {
		p.logger.Info().Bool("online", online).Str("url", p.url).Msg("connectivity changed")
		// 최초 판정이 오프라인이면 이벤트를 내지 않는다
		if p.pub != nil && !(first && !online) {
			if online {
				p.pub.PublishOnline("probe")
			} else {
				p.pub.PublishOffline("probe")
			}
		}
	}
	return online
}

// Run checks immediately and then on every tick until ctx is done
func (p *Probe) Run(ctx context.Context) {
	p.Check(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Check(ctx)
		}
	}
}

func (p *Probe) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", p.url).Msg("probe failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
