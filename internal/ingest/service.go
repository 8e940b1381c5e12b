package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/ws"
	"github.com/damoang/angple-bugreport/pkg/cache"
	pkges "github.com/damoang/angple-bugreport/pkg/elasticsearch"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidReport  = errors.New("invalid bug report")
	ErrSearchDisabled = errors.New("search is not configured")
)

// DefaultSinkTimeout bounds the secondary store writes of one report
const DefaultSinkTimeout = 10 * time.Second

// Broadcaster pushes events to the admin live feed
type Broadcaster interface {
	Broadcast(event *ws.Event)
}

// ServiceDeps 서비스 의존성. Repo 외에는 모두 선택
type ServiceDeps struct {
	Repo        Repository
	Screenshots *ScreenshotStore // nil이면 data URI를 그대로 저장
	Sinks       []Sink
	Search      Searcher
	SearchIndex string
	Feed        Broadcaster
	// Cache 관리자 단건 조회 캐시 (nil이면 미사용)
	Cache       cache.Service
	Metrics     *metrics.Ingest
	Clock       clockwork.Clock
	Logger      zerolog.Logger
	SinkTimeout time.Duration
}

// Service stores incoming reports and fans them out
type Service struct {
	repo        Repository
	screenshots *ScreenshotStore
	sinks       []Sink
	search      Searcher
	searchIndex string
	feed        Broadcaster
	cache       cache.Service
	metrics     *metrics.Ingest
	clock       clockwork.Clock
	log         zerolog.Logger
	sinkTimeout time.Duration
}

// NewService creates a new Service
func NewService(d ServiceDeps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.SinkTimeout <= 0 {
		d.SinkTimeout = DefaultSinkTimeout
	}
	return &Service{
		repo:        d.Repo,
		screenshots: d.Screenshots,
		sinks:       d.Sinks,
		search:      d.Search,
		searchIndex: d.SearchIndex,
		feed:        d.Feed,
		cache:       d.Cache,
		metrics:     d.Metrics,
		clock:       d.Clock,
		log:         d.Logger,
		sinkTimeout: d.SinkTimeout,
	}
}

// Validate checks what the binding tags cannot
func Validate(p domain.BugReportPayload) error {
	if _, err := uuid.Parse(p.ReportID); err != nil {
		return fmt.Errorf("%w: report_id must be a uuid", ErrInvalidReport)
	}
	if !p.ErrorSource.Valid() {
		return fmt.Errorf("%w: unknown error_source %q", ErrInvalidReport, p.ErrorSource)
	}
	for i, a := range p.UserActions {
		if !a.Kind.Valid() {
			return fmt.Errorf("%w: user_actions[%d] has unknown type %q", ErrInvalidReport, i, a.Kind)
		}
	}
	return nil
}

// Ingest stores p once per report_id. A repeated report_id returns the
// stored record with created false, so client retries are harmless.
func (s *Service) Ingest(ctx context.Context, p domain.BugReportPayload, clientIP string) (*Record, bool, error) {
	if err := Validate(p); err != nil {
		s.metrics.Received(metrics.IngestInvalid, string(p.ErrorSource))
		return nil, false, err
	}

	if existing, err := s.repo.FindByReportID(ctx, p.ReportID); err == nil {
		s.metrics.Received(metrics.IngestDuplicate, string(p.ErrorSource))
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		s.metrics.Received(metrics.IngestFailed, string(p.ErrorSource))
		return nil, false, err
	}

	rec := NewRecord(p, clientIP, s.clock.Now())
	var uploaded string
	if s.screenshots != nil && rec.Screenshot != nil {
		// 업로드 실패 시 data URI 그대로 저장
		key, err := s.screenshots.Offload(ctx, rec)
		s.metrics.Upload(err)
		if err != nil {
			s.log.Warn().Err(err).Str("report_id", rec.ReportID).Msg("screenshot offload failed, keeping inline")
		}
		uploaded = key
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.discardScreenshot(ctx, uploaded, rec.ReportID)
		s.metrics.Received(metrics.IngestFailed, string(p.ErrorSource))
		return nil, false, err
	}
	if !created {
		// 동시 요청이 먼저 저장함
		s.discardScreenshot(ctx, uploaded, rec.ReportID)
		s.metrics.Received(metrics.IngestDuplicate, string(p.ErrorSource))
		existing, err := s.repo.FindByReportID(ctx, p.ReportID)
		return existing, false, err
	}
	s.metrics.Received(metrics.IngestCreated, string(p.ErrorSource))

	s.log.Info().
		Str("report_id", rec.ReportID).
		Str("error_source", string(rec.ErrorSource)).
		Str("source_app", rec.SourceApp).
		Bool("has_screenshot", rec.HasScreenshot()).
		Int("actions", len(rec.UserActions)).
		Msg("bug report stored")

	s.fanOut(ctx, rec)
	if s.feed != nil {
		s.feed.Broadcast(&ws.Event{Type: ws.EventBugReportCreated, Payload: rec.Summary()})
	}
	return rec, true, nil
}

// discardScreenshot deletes an object no stored record points to
func (s *Service) discardScreenshot(ctx context.Context, key, reportID string) {
	if key == "" {
		return
	}
	if err := s.screenshots.Discard(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn().Err(err).Str("report_id", reportID).Str("key", key).Msg("orphaned screenshot not removed")
		return
	}
	s.log.Debug().Str("report_id", reportID).Str("key", key).Msg("orphaned screenshot removed")
}

// fanOut writes rec to every sink concurrently. The request context only
// supplies values; a client disconnect does not cancel the writes.
func (s *Service) fanOut(ctx context.Context, rec *Record) {
	if len(s.sinks) == 0 {
		return
	}
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range s.sinks {
		g.Go(func() error {
			start := s.clock.Now()
			err := sink.Write(sinkCtx, rec)
			s.metrics.SinkWrite(sink.Name(), s.clock.Since(start), err)
			if err != nil {
				s.log.Warn().Err(err).Str("sink", sink.Name()).Str("report_id", rec.ReportID).Msg("sink write failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Get returns one report by report_id
func (s *Service) Get(ctx context.Context, reportID string) (*Record, error) {
	if s.cache == nil {
		return s.repo.FindByReportID(ctx, reportID)
	}
	key := s.cache.ReportKey(reportID)
	var cached Record
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("report_id", reportID).Msg("report cache read failed")
	}

	rec, err := s.repo.FindByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, rec, cache.TTLReport); err != nil {
		s.log.Warn().Err(err).Str("report_id", reportID).Msg("report cache write failed")
	}
	return rec, nil
}

// List returns a filtered page of reports
func (s *Service) List(ctx context.Context, f ListFilter) ([]Record, int64, error) {
	return s.repo.List(ctx, f)
}

// Search runs a full text query over the report index
func (s *Service) Search(ctx context.Context, text string, page, limit int) (*pkges.SearchResponse, error) {
	if s.search == nil {
		return nil, ErrSearchDisabled
	}
	return s.search.Search(ctx, s.searchIndex, SearchQuery(text), (page-1)*limit, limit)
}
