package reporter

import (
	"fmt"

	"github.com/damoang/angple-bugreport/internal/config"
	"github.com/damoang/angple-bugreport/internal/connectivity"
	"github.com/damoang/angple-bugreport/internal/dedup"
	"github.com/damoang/angple-bugreport/internal/delivery"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/events"
	"github.com/damoang/angple-bugreport/internal/identity"
	"github.com/damoang/angple-bugreport/internal/kv"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/queue"
	"github.com/damoang/angple-bugreport/internal/ratelimit"
	"github.com/damoang/angple-bugreport/internal/screenshot"
	"github.com/damoang/angple-bugreport/internal/trail"
	"github.com/damoang/angple-bugreport/pkg/i18n"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Runtime is what the host supplies when building a controller from config
type Runtime struct {
	Bus         *events.Bus
	Signal      connectivity.Signal
	Environment *HostEnvironment
	Identity    identity.Provider
	// Redis is required for the redis queue backend and the shared limiter
	Redis *redis.Client
	// Rasterizer overrides the headless Chrome rasterizer
	Rasterizer screenshot.Rasterizer
	// SessionID scopes the shared rate limit
	SessionID string
	Metrics   *metrics.Pipeline
	Clock     clockwork.Clock
	Logger    zerolog.Logger
}

// Pipeline bundles a built controller with the pieces a host may need
type Pipeline struct {
	Controller *Controller
	Deliverer  *delivery.Deliverer
	Queue      *queue.Queue
	close      []func()
}

// Close releases resources started by Build
func (p *Pipeline) Close() {
	p.Controller.Stop()
	for _, fn := range p.close {
		fn()
	}
}

// Build wires the whole client pipeline from cfg
func Build(cfg *config.Config, rt Runtime) (*Pipeline, error) {
	rc := cfg.Reporter
	if rt.Clock == nil {
		rt.Clock = clockwork.NewRealClock()
	}
	if rt.Signal == nil {
		rt.Signal = connectivity.NewManual(true, rt.Bus)
	}
	if rt.Environment == nil {
		rt.Environment = NewHostEnvironment(DefaultBrowserInfo("angple-bugreport", rc.Locale), rt.Signal)
	}
	log := rt.Logger.With().Str("component", "reporter").Logger()
	p := &Pipeline{}

	store, err := newStore(rc.Queue, rt.Redis)
	if err != nil {
		return nil, err
	}
	p.Queue = queue.New(store, rc.Queue.Key, rt.Clock, log, queue.Hooks{
		OnEvict: func(domain.QueueEntry) { rt.Metrics.QueueEvicted() },
		OnDepth: rt.Metrics.QueueDepth,
	})

	transport := delivery.NewHTTPTransport(rc.Endpoint, nil)
	p.Deliverer = delivery.NewDeliverer(transport, p.Queue, rt.Signal, log)

	var limiter ratelimit.Limiter
	if rc.RateLimit.Shared {
		if rt.Redis == nil {
			return nil, fmt.Errorf("reporter: shared rate limit needs redis")
		}
		limiter = ratelimit.NewRedisWindow(rt.Redis, rt.SessionID, rc.RateLimit.Max, rc.RateLimit.Window, rt.Clock, log)
	} else {
		limiter = ratelimit.NewWindow(rc.RateLimit.Max, rc.RateLimit.Window, rt.Clock)
	}

	var capturer Capturer
	if rc.Screenshot.Enabled {
		rasterizer := rt.Rasterizer
		if rasterizer == nil {
			pageURL := rt.Environment.CurrentURL
			if rc.Screenshot.PageURL != "" {
				fixed := rc.Screenshot.PageURL
				pageURL = func() string { return fixed }
			}
			chrome := screenshot.NewChromeRasterizer(pageURL, rt.Environment.BrowserInfo().UserAgent)
			p.close = append(p.close, chrome.Close)
			rasterizer = chrome
		}
		capturer = screenshot.NewCapturer(rasterizer, rt.Environment.Viewport, screenshot.Options{
			MaxViewport:     screenshot.Viewport{Width: rc.Screenshot.MaxViewportW, Height: rc.Screenshot.MaxViewportH},
			MaxWidth:        rc.Screenshot.MaxWidth,
			Quality:         rc.Screenshot.Quality,
			FallbackQuality: rc.Screenshot.FallbackQuality,
			MaxBytes:        rc.Screenshot.MaxBytes,
			Timeout:         rc.Screenshot.Timeout,
		}, log)
	}

	p.Controller = New(Deps{
		Trail:       trail.NewRecorder(rc.TrailCapacity, rt.Clock, rt.Environment.CurrentURL),
		Dedup:       dedup.NewCache(rc.DedupWindow, rt.Clock),
		Limiter:     limiter,
		Capturer:    capturer,
		Delivery:    p.Deliverer,
		Identity:    rt.Identity,
		Environment: rt.Environment,
		Bus:         rt.Bus,
		Messages:    i18n.Default(),
		Metrics:     rt.Metrics,
		Clock:       rt.Clock,
		Logger:      log,
	}, Options{
		Locale:               i18n.ParseLocale(rc.Locale),
		SourceApp:            rc.SourceApp,
		ToastDuration:        rc.ToastDuration,
		ErrorToastDuration:   rc.ErrorToastDuration,
		MinDescriptionLength: rc.MinDescriptionLength,
	})
	return p, nil
}

func newStore(qc config.QueueConfig, client *redis.Client) (kv.Store, error) {
	switch qc.Backend {
	case "memory":
		return kv.NewMemory(qc.QuotaBytes), nil
	case "file":
		return kv.NewFile(qc.Dir, int64(qc.QuotaBytes))
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("reporter: redis queue backend needs a redis client")
		}
		return kv.NewRedis(client, "", qc.QuotaBytes), nil
	}
	return nil, fmt.Errorf("reporter: unknown queue backend %q", qc.Backend)
}
