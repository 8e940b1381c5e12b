package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/ws"
	"github.com/damoang/angple-bugreport/pkg/cache"
	"github.com/damoang/angple-bugreport/pkg/storage"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*storage.UploadResult, error) {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, key, data, contentType, size)
	res, _ := args.Get(0).(*storage.UploadResult)
	return res, args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// lostRaceRepo stores a competing copy of the report just before Create,
// or fails Create outright when err is set
type lostRaceRepo struct {
	*GormRepository
	err error
}

func (r *lostRaceRepo) Create(ctx context.Context, rec *Record) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	other := *rec
	other.ScreenshotURL = nil
	if _, err := r.GormRepository.Create(ctx, &other); err != nil {
		return false, err
	}
	return r.GormRepository.Create(ctx, rec)
}

type serviceFixture struct {
	svc   *Service
	repo  *GormRepository
	sinks []*recordingSink
	feed  *recordingFeed
	store *mockObjectStore
}

func newServiceFixture(t *testing.T, sinkErr error) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:  newTestRepo(t),
		sinks: []*recordingSink{{name: "clickhouse", err: sinkErr}, {name: "elasticsearch"}},
		feed:  &recordingFeed{},
		store: &mockObjectStore{},
	}
	f.svc = NewService(ServiceDeps{
		Repo:        f.repo,
		Screenshots: NewScreenshotStore(f.store, "bug-reports"),
		Sinks:       []Sink{f.sinks[0], f.sinks[1]},
		Feed:        f.feed,
		Metrics:     metrics.NewIngest(prometheus.NewRegistry()),
		Clock:       clockwork.NewFakeClockAt(testNow),
		Logger:      zerolog.Nop(),
	})
	return f
}

func TestService_IngestStoresAndFansOut(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := testPayload(domain.SourceGlobalError)

	rec, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, testNow, rec.CreatedAt)

	for _, s := range f.sinks {
		assert.Equal(t, []string{p.ReportID}, s.ids(), s.name)
	}
	events := f.feed.all()
	require.Len(t, events, 1)
	assert.Equal(t, ws.EventBugReportCreated, events[0].Type)
	assert.Equal(t, p.ReportID, events[0].Payload.(Summary).ReportID)
}

func TestService_IngestDuplicateReturnsStored(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := testPayload(domain.SourceBoundary)

	first, _, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)

	again, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// 재전송은 다시 퍼뜨리지 않는다
	assert.Len(t, f.sinks[0].ids(), 1)
	assert.Len(t, f.feed.all(), 1)
}

func TestService_IngestDiscardsOrphanedScreenshot(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		wantErr   bool
	}{
		{"lost race to concurrent request", nil, false},
		{"insert failed", errors.New("deadlock found"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, nil)
			f.svc.repo = &lostRaceRepo{GormRepository: f.repo, err: tt.createErr}
			p := testPayload(domain.SourceManual)
			p.Screenshot = testScreenshot(t)

			var key string
			f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/jpeg", mock.Anything).
				Run(func(args mock.Arguments) { key = args.String(1) }).
				Return(&storage.UploadResult{URL: "https://s3/x.jpg"}, nil)
			f.store.On("Delete", mock.Anything, mock.MatchedBy(func(k string) bool { return k == key })).Return(nil).Once()

			rec, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
			assert.False(t, created)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Nil(t, rec.ScreenshotURL)
			}
			f.store.AssertExpectations(t)
			assert.NotEmpty(t, key)
			assert.Empty(t, f.sinks[0].ids())
		})
	}
}

func TestService_IngestKeepsScreenshotOfStoredReport(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := testPayload(domain.SourceManual)
	p.Screenshot = testScreenshot(t)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/jpeg", mock.Anything).
		Return(&storage.UploadResult{URL: "https://s3/x.jpg"}, nil)

	_, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, created)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_IngestRejectsInvalid(t *testing.T) {
	f := newServiceFixture(t, nil)

	tests := []struct {
		name   string
		mutate func(p *domain.BugReportPayload)
	}{
		{"report id not uuid", func(p *domain.BugReportPayload) { p.ReportID = "not-a-uuid" }},
		{"unknown source", func(p *domain.BugReportPayload) { p.ErrorSource = "console" }},
		{"unknown action", func(p *domain.BugReportPayload) { p.UserActions[0].Kind = "hover" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPayload(domain.SourceBoundary)
			tt.mutate(&p)
			_, _, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
			assert.ErrorIs(t, err, ErrInvalidReport)
		})
	}
	assert.Empty(t, f.sinks[0].ids())
}

func TestService_IngestOffloadsScreenshot(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := testPayload(domain.SourceManual)
	p.Screenshot = testScreenshot(t)

	f.store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "bug-reports/2026/10/18/"+p.ReportID)
	}), mock.Anything, "image/jpeg", mock.Anything).
		Return(&storage.UploadResult{URL: "https://s3/x.jpg", CDNURL: "https://cdn.angple.com/x.jpg"}, nil)

	rec, _, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	f.store.AssertExpectations(t)

	require.NotNil(t, rec.ScreenshotURL)
	assert.Equal(t, "https://cdn.angple.com/x.jpg", *rec.ScreenshotURL)
	assert.Nil(t, rec.Screenshot)

	stored, err := f.repo.FindByReportID(context.Background(), p.ReportID)
	require.NoError(t, err)
	assert.Nil(t, stored.Screenshot)
	assert.True(t, stored.HasScreenshot())
}

func TestService_IngestKeepsInlineScreenshotWhenUploadFails(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := testPayload(domain.SourceManual)
	p.Screenshot = testScreenshot(t)

	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("access denied"))

	rec, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, rec.ScreenshotURL)
	require.NotNil(t, rec.Screenshot)
	assert.Equal(t, *p.Screenshot, *rec.Screenshot)
}

func TestService_SinkFailureDoesNotFailIngest(t *testing.T) {
	f := newServiceFixture(t, errors.New("clickhouse down"))
	p := testPayload(domain.SourceUnhandledRejection)

	_, created, err := f.svc.Ingest(context.Background(), p, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{p.ReportID}, f.sinks[1].ids())
}

func TestService_SearchDisabled(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.svc.Search(context.Background(), "boom", 1, 20)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

type fakeExecer struct {
	queries []string
	args    [][]any
}

func (e *fakeExecer) Exec(_ context.Context, query string, args ...any) error {
	e.queries = append(e.queries, query)
	e.args = append(e.args, args)
	return nil
}

func TestService_GetCachesRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := newTestRepo(t)
	svc := NewService(ServiceDeps{
		Repo:   repo,
		Cache:  cache.NewService(client),
		Clock:  clockwork.NewFakeClockAt(testNow),
		Logger: zerolog.Nop(),
	})
	p := testPayload(domain.SourceManual)
	_, _, err := svc.Ingest(context.Background(), p, "10.0.0.1")
	require.NoError(t, err)

	first, err := svc.Get(context.Background(), p.ReportID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("bugreport:record:"+p.ReportID))

	// DB에서 지워도 캐시에서 응답
	require.NoError(t, repo.db.Where("report_id = ?", p.ReportID).Delete(&Record{}).Error)
	second, err := svc.Get(context.Background(), p.ReportID)
	require.NoError(t, err)
	assert.Equal(t, first.ReportID, second.ReportID)
	assert.Equal(t, first.UserActions, second.UserActions)

	_, err = svc.Get(context.Background(), "00000000-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClickHouseSink_Write(t *testing.T) {
	exec := &fakeExecer{}
	sink := NewClickHouseSink(exec, "")
	p := testPayload(domain.SourceBoundary)
	p.Screenshot = testScreenshot(t)
	rec := NewRecord(p, "10.0.0.1", testNow)

	require.NoError(t, sink.EnsureTable(context.Background()))
	require.NoError(t, sink.Write(context.Background(), rec))

	require.Len(t, exec.queries, 2)
	assert.Equal(t, "error_logs.bug_reports", sink.Table())
	assert.Contains(t, exec.queries[0], "CREATE TABLE IF NOT EXISTS error_logs.bug_reports")
	assert.Contains(t, exec.queries[1], "INSERT INTO error_logs.bug_reports")

	args := exec.args[1]
	require.Len(t, args, 15)
	assert.Equal(t, p.ReportID, args[0])
	assert.Equal(t, "boundary", args[5])
	assert.Equal(t, "angple", args[8])
	assert.Equal(t, uint8(1), args[11])  // online
	assert.Equal(t, uint8(1), args[12])  // has_screenshot
	assert.Equal(t, uint16(1), args[13]) // action_count
	assert.Equal(t, uint8(1), args[14])  // has_description
}

func TestSearchSink_DocumentOmitsScreenshot(t *testing.T) {
	p := testPayload(domain.SourceManual)
	p.Screenshot = testScreenshot(t)
	doc := NewSearchDocument(NewRecord(p, "10.0.0.1", testNow))

	assert.Equal(t, p.ReportID, doc.ReportID)
	assert.Equal(t, "manual", doc.ErrorSource)
	assert.True(t, doc.HasScreenshot)
	assert.Equal(t, "저장 버튼을 누르면 멈춥니다", doc.UserDescription)
}

func TestIsPrivateHost(t *testing.T) {
	assert.True(t, isPrivateHost("localhost"))
	assert.True(t, isPrivateHost("10.1.2.3"))
	assert.True(t, isPrivateHost("192.168.0.5"))
	assert.False(t, isPrivateHost("ch.angple.com"))
}
