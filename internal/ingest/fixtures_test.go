package ingest

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/screenshot"
	"github.com/damoang/angple-bugreport/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: DB는 커넥션마다 별도
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewGormRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func testPayload(source domain.ErrorSource) domain.BugReportPayload {
	target := "button#save"
	return domain.NewBugReportPayload(domain.PayloadParams{
		ReportID: uuid.NewString(),
		Error: domain.ErrorEvent{
			Message: "Cannot read properties of undefined",
			Stack:   domain.StringPtr("TypeError: x\n    at save (app.js:10:5)"),
			Source:  source,
		},
		Identity:    domain.Identity{ID: domain.StringPtr("angple"), Email: domain.StringPtr("angple@damoang.net")},
		Description: domain.StringPtr("저장 버튼을 누르면 멈춥니다"),
		Actions: []domain.UserAction{
			{Kind: domain.ActionClick, Target: &target, Timestamp: testNow.UnixMilli(), URL: "https://damoang.net/free"},
		},
		Browser:   domain.BrowserInfo{UserAgent: "Mozilla/5.0", Language: "ko-KR", Online: true},
		URL:       "https://damoang.net/free",
		SourceApp: domain.DefaultSourceApp,
		CreatedAt: testNow.Add(-time.Minute),
	})
}

func testScreenshot(t *testing.T) *string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	uri, err := screenshot.NewImageSurface(img).Encode(0.7)
	require.NoError(t, err)
	return &uri
}

// recordingSink remembers what it was asked to write
type recordingSink struct {
	name string
	err  error

	mu      sync.Mutex
	written []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, r.ReportID)
	return s.err
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// recordingFeed collects live feed events
type recordingFeed struct {
	mu     sync.Mutex
	events []*ws.Event
}

func (f *recordingFeed) Broadcast(e *ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *recordingFeed) all() []*ws.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ws.Event(nil), f.events...)
}
