package reporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

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
	"github.com/damoang/angple-bugreport/internal/trail"
	"github.com/damoang/angple-bugreport/pkg/i18n"
	"github.com/jonboulle/clockwork"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pageURL    = "https://damoang.net/free/1234"
	screenData = "data:image/jpeg;base64,/9j/AAAA"
	longDesc   = "The page goes blank after I press the write button"
)

// fakeTransport records every send attempt
type fakeTransport struct {
	mu    sync.Mutex
	sent  []domain.BugReportPayload
	err   error
	block chan struct{}
}

func (f *fakeTransport) Send(_ context.Context, p domain.BugReportPayload) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return f.err
}

func (f *fakeTransport) calls() []domain.BugReportPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.BugReportPayload(nil), f.sent...)
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeCapturer struct {
	mu    sync.Mutex
	shot  *string
	calls int
}

func (f *fakeCapturer) Capture(context.Context) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.shot
}

type fixture struct {
	ctrl      *Controller
	clock     *clockwork.FakeClock
	bus       *events.Bus
	signal    *connectivity.Manual
	queue     *queue.Queue
	transport *fakeTransport
	capturer  *fakeCapturer
	identity  *identity.Static
	limiter   *ratelimit.Window
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)),
		bus:       events.NewBus(zerolog.Nop()),
		transport: &fakeTransport{},
		identity:  identity.NewStatic("", ""),
	}
	shot := screenData
	f.capturer = &fakeCapturer{shot: &shot}
	f.signal = connectivity.NewManual(online, f.bus)
	f.queue = queue.New(kv.NewMemory(0), "", f.clock, zerolog.Nop(), queue.Hooks{})
	f.limiter = ratelimit.NewWindow(5, 5*time.Minute, f.clock)

	env := NewHostEnvironment(DefaultBrowserInfo("test-agent", "en-US"), f.signal)
	env.SetURL(pageURL)

	f.ctrl = New(Deps{
		Trail:       trail.NewRecorder(10, f.clock, env.CurrentURL),
		Dedup:       dedup.NewCache(60*time.Second, f.clock),
		Limiter:     f.limiter,
		Capturer:    f.capturer,
		Delivery:    delivery.NewDeliverer(f.transport, f.queue, f.signal, zerolog.Nop()),
		Identity:    f.identity,
		Environment: env,
		Bus:         f.bus,
		Metrics:     metrics.NewPipeline(prometheus.NewRegistry()),
		Clock:       f.clock,
		Logger:      zerolog.Nop(),
	}, Options{Locale: i18n.LocaleEn})
	t.Cleanup(f.ctrl.Stop)
	return f
}

func (f *fixture) submitManual(t *testing.T, description string) (SubmitResult, error) {
	t.Helper()
	f.ctrl.OpenManualReport()
	return f.ctrl.SubmitReport(context.Background(), description, false)
}

func boom() error { return pkgerrors.New("cannot read properties of undefined") }

func TestSetPendingError_SurfacesWithLongToast(t *testing.T) {
	f := newFixture(t, true)

	ok := f.ctrl.SetPendingError(context.Background(), boom(), domain.SourceBoundary, "PostList")
	require.True(t, ok)

	st := f.ctrl.State()
	assert.Equal(t, PhaseErrorIntercepted, st.Phase)
	require.NotNil(t, st.PendingError)
	assert.Equal(t, "cannot read properties of undefined", st.PendingError.Message)
	assert.Equal(t, "PostList", *st.PendingError.ComponentContext)
	assert.Equal(t, domain.ToastError, st.Toast.Variant)
	assert.True(t, st.Toast.Visible)
	assert.True(t, st.Toast.ShowReportButton)
	require.NotNil(t, st.Screenshot, "automatic errors are captured right away")
	assert.Equal(t, 1, f.capturer.calls)

	f.clock.Advance(29 * time.Second)
	assert.True(t, f.ctrl.State().Toast.Visible)
	f.clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return !f.ctrl.State().Toast.Visible }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, f.ctrl.State().PendingError, "auto-dismiss keeps the held error")
}

func TestSetPendingError_DuplicateWithinWindowSuppressed(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var errs []error
	for i := 0; i < 2; i++ {
		errs = append(errs, boom())
	}

	require.True(t, f.ctrl.SetPendingError(ctx, errs[0], domain.SourceBoundary, ""))
	before := f.ctrl.State()

	f.clock.Advance(59 * time.Second)
	assert.False(t, f.ctrl.SetPendingError(ctx, errs[1], domain.SourceBoundary, ""))
	assert.Equal(t, before.Toast, f.ctrl.State().Toast, "no toast state change")
	assert.Equal(t, 1, f.capturer.calls)
}

func TestSetPendingError_SameFingerprintAfterWindowIsNew(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	event := domain.ErrorEvent{Message: "boom", Source: domain.SourceGlobalError}

	require.True(t, f.ctrl.SetPendingError(ctx, event, domain.SourceGlobalError, ""))
	f.clock.Advance(60_001 * time.Millisecond)
	assert.True(t, f.ctrl.SetPendingError(ctx, event, domain.SourceGlobalError, ""))
}

func TestSetPendingError_RateLimitedShowsNotice(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.limiter.RecordSubmission(ctx)
	}

	ok := f.ctrl.SetPendingError(ctx, errors.New("fresh"), domain.SourceGlobalError, "")
	assert.False(t, ok)

	st := f.ctrl.State()
	assert.Nil(t, st.PendingError)
	assert.Equal(t, domain.ToastInfo, st.Toast.Variant)
	assert.Equal(t, "Too many reports. Please try again later", st.Toast.Message)
	assert.Zero(t, f.capturer.calls, "dropped before capture")
	assert.Empty(t, f.transport.calls())
	assert.Zero(t, f.queue.Len())
}

func TestSubmitReport_OnlineDelivered(t *testing.T) {
	f := newFixture(t, true)
	f.identity.Set("angple", "angple@damoang.net")
	ctx := context.Background()

	f.ctrl.TrackAction(domain.UserAction{Kind: domain.ActionClick, Target: domain.StringPtr("button.write")})
	require.True(t, f.ctrl.SetPendingError(ctx, boom(), domain.SourceBoundary, "Editor"))
	require.True(t, f.ctrl.OpenModal())

	res, err := f.ctrl.SubmitReport(ctx, "  clicked write  ", true)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeDelivered, res.Outcome)

	sent := f.transport.calls()
	require.Len(t, sent, 1)
	p := sent[0]
	assert.Equal(t, res.ReportID, p.ReportID)
	assert.Equal(t, domain.DefaultSourceApp, p.SourceApp)
	assert.Equal(t, "angple", *p.UserID)
	assert.Equal(t, "angple@damoang.net", *p.UserEmail)
	assert.Equal(t, "clicked write", *p.UserDescription)
	assert.Equal(t, domain.SourceBoundary, p.ErrorSource)
	assert.Equal(t, "Editor", *p.ComponentStack)
	require.NotNil(t, p.Screenshot)
	assert.Equal(t, screenData, *p.Screenshot)
	assert.Equal(t, pageURL, p.URL)
	assert.True(t, p.BrowserInfo.Online)
	require.Len(t, p.UserActions, 1)
	assert.Equal(t, pageURL, p.UserActions[0].URL)

	st := f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.False(t, st.ModalOpen)
	assert.Nil(t, st.PendingError)
	assert.Nil(t, st.Screenshot)
	assert.Equal(t, domain.ToastSuccess, st.Toast.Variant)
	assert.True(t, st.Toast.Visible)
	assert.Equal(t, 4, f.limiter.Remaining(ctx))
}

func TestSubmitReport_AnonymousIdentityIsNull(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.submitManual(t, longDesc)
	require.NoError(t, err)

	p := f.transport.calls()[0]
	assert.Nil(t, p.UserID)
	assert.Nil(t, p.UserEmail)
}

func TestSubmitReport_OfflineQueuesWithoutNetwork(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.submitManual(t, longDesc)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeQueued, res.Outcome)

	assert.Empty(t, f.transport.calls(), "no network I/O while offline")
	entries, err := f.queue.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.ReportID, entries[0].Payload.ReportID)
	assert.False(t, entries[0].Payload.BrowserInfo.Online)

	st := f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.False(t, st.ModalOpen)
	assert.Equal(t, domain.ToastInfo, st.Toast.Variant)
	assert.Contains(t, st.Toast.Message, "saved")
	assert.Equal(t, 4, f.limiter.Remaining(context.Background()), "queued submissions count")
}

func TestSubmitReport_RateLimitAfterFiveSubmissions(t *testing.T) {
	f := newFixture(t, true)

	for i := 0; i < 5; i++ {
		_, err := f.submitManual(t, fmt.Sprintf("%s #%d", longDesc, i))
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)
	}

	_, err := f.submitManual(t, longDesc)
	assert.ErrorIs(t, err, ErrRateLimited)

	st := f.ctrl.State()
	assert.True(t, st.ModalOpen, "form stays open")
	assert.Equal(t, longDesc, st.Description)
	assert.Equal(t, domain.ToastInfo, st.Toast.Variant)
	assert.Len(t, f.transport.calls(), 5)

	// window slides
	f.clock.Advance(5 * time.Minute)
	_, err = f.ctrl.SubmitReport(context.Background(), longDesc, false)
	assert.NoError(t, err)
}

func TestSubmitReport_OnlineFailureKeepsFormOpen(t *testing.T) {
	f := newFixture(t, true)
	f.transport.setErr(&delivery.StatusError{StatusCode: 500})

	res, err := f.submitManual(t, longDesc)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	var se *delivery.StatusError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, delivery.OutcomeRejected, res.Outcome)

	st := f.ctrl.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.True(t, st.ModalOpen)
	assert.Equal(t, longDesc, st.Description, "description kept for retry")
	assert.Equal(t, domain.ToastError, st.Toast.Variant)
	assert.Equal(t, "Failed to send the report. Please try again", st.Toast.Message)
	assert.Zero(t, f.queue.Len(), "nothing queued")
	assert.Equal(t, 5, f.limiter.Remaining(context.Background()), "rejected submissions do not count")

	// retry from the same form
	f.transport.setErr(nil)
	res, err = f.ctrl.SubmitReport(context.Background(), st.Description, false)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeDelivered, res.Outcome)
	assert.Equal(t, PhaseIdle, f.ctrl.State().Phase)
}

func TestSubmitReport_ManualDescriptionRules(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.submitManual(t, "  too short  ")
	assert.ErrorIs(t, err, ErrDescriptionTooShort)
	assert.True(t, f.ctrl.State().ModalOpen)
	assert.Equal(t, "Please describe the problem in at least 10 characters", f.ctrl.State().Toast.Message)
	assert.Empty(t, f.transport.calls())

	// 10 runes of Korean text is enough
	_, err = f.ctrl.SubmitReport(context.Background(), "글쓰기버튼이안눌려요", false)
	require.NoError(t, err)

	long := strings.Repeat("가", 150)
	_, err = f.submitManual(t, long)
	require.NoError(t, err)

	sent := f.transport.calls()
	require.Len(t, sent, 2)
	assert.Equal(t, "[Manual Report] 글쓰기버튼이안눌려요", sent[0].ErrorMessage)
	assert.Equal(t, "[Manual Report] "+strings.Repeat("가", 100), sent[1].ErrorMessage)
	assert.Equal(t, domain.SourceManual, sent[1].ErrorSource)
	assert.Nil(t, sent[1].ErrorStack)
	assert.Equal(t, long, *sent[1].UserDescription)
}

func TestSubmitReport_NothingOpen(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.ctrl.SubmitReport(context.Background(), longDesc, false)
	assert.ErrorIs(t, err, ErrNothingToReport)
}

func TestSubmitReport_ConcurrentSubmitRejected(t *testing.T) {
	f := newFixture(t, true)
	f.transport.block = make(chan struct{})
	f.ctrl.OpenManualReport()

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.SubmitReport(context.Background(), longDesc, false)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.ctrl.State().Submitting }, time.Second, time.Millisecond)
	assert.Equal(t, PhaseSubmitting, f.ctrl.State().Phase)

	_, err := f.ctrl.SubmitReport(context.Background(), longDesc, false)
	assert.ErrorIs(t, err, ErrSubmitting)

	close(f.transport.block)
	require.NoError(t, <-done)
	assert.Len(t, f.transport.calls(), 1)
}

func TestSubmitReport_ScreenshotOptIn(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.True(t, f.ctrl.SetPendingError(ctx, boom(), domain.SourceBoundary, ""))
	require.True(t, f.ctrl.OpenModal())
	_, err := f.ctrl.SubmitReport(ctx, "", false)
	require.NoError(t, err)
	assert.Nil(t, f.transport.calls()[0].Screenshot)
	assert.Nil(t, f.transport.calls()[0].UserDescription)
}

func TestManualReport_CaptureOnUserAction(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.ctrl.OpenManualReport()
	assert.Zero(t, f.capturer.calls, "manual open does not capture")

	shot := f.ctrl.CaptureScreenshot(ctx)
	require.NotNil(t, shot)
	assert.Equal(t, screenData, *f.ctrl.State().Screenshot)

	_, err := f.ctrl.SubmitReport(ctx, longDesc, true)
	require.NoError(t, err)
	assert.Equal(t, screenData, *f.transport.calls()[0].Screenshot)
}

func TestManualReport_BypassesGates(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.limiter.RecordSubmission(ctx)
	}

	require.False(t, f.ctrl.SetPendingError(ctx, errors.New("x"), domain.SourceGlobalError, ""))
	f.ctrl.OpenManualReport()
	st := f.ctrl.State()
	assert.True(t, st.ModalOpen)
	assert.True(t, st.Manual)
	assert.Equal(t, PhaseReviewing, st.Phase)
}

func TestManualReport_ClearsHeldError(t *testing.T) {
	f := newFixture(t, true)
	require.True(t, f.ctrl.SetPendingError(context.Background(), boom(), domain.SourceBoundary, ""))

	f.ctrl.OpenManualReport()
	st := f.ctrl.State()
	assert.Nil(t, st.PendingError)
	assert.Nil(t, st.Screenshot)
	assert.False(t, f.ctrl.OpenModal(), "no held error to open")
}

func TestCloseModal_NoSideEffects(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.True(t, f.ctrl.SetPendingError(ctx, boom(), domain.SourceBoundary, ""))
	require.True(t, f.ctrl.OpenModal())
	f.ctrl.SetDescription("half typed")

	f.ctrl.CloseModal()
	st := f.ctrl.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.PendingError)
	assert.Nil(t, st.Screenshot)
	assert.Empty(t, st.Description)
	assert.Zero(t, f.queue.Len())
	assert.Equal(t, 5, f.limiter.Remaining(ctx))
}

func TestDismissToast_KeepsHeldError(t *testing.T) {
	f := newFixture(t, true)
	require.True(t, f.ctrl.SetPendingError(context.Background(), boom(), domain.SourceBoundary, ""))

	f.ctrl.DismissToast()
	st := f.ctrl.State()
	assert.False(t, st.Toast.Visible)
	assert.Equal(t, PhaseErrorIntercepted, st.Phase)
	assert.True(t, f.ctrl.OpenModal())
}

func TestToast_NewToastCancelsPendingTimer(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.True(t, f.ctrl.SetPendingError(ctx, errors.New("first"), domain.SourceGlobalError, ""))
	f.clock.Advance(20 * time.Second)
	require.True(t, f.ctrl.SetPendingError(ctx, errors.New("second"), domain.SourceGlobalError, ""))

	// the first toast would have expired at 30s
	f.clock.Advance(15 * time.Second)
	assert.Never(t, func() bool { return !f.ctrl.State().Toast.Visible }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, "second", f.ctrl.State().PendingError.Message)

	f.clock.Advance(15 * time.Second)
	assert.Eventually(t, func() bool { return !f.ctrl.State().Toast.Visible }, time.Second, 5*time.Millisecond)
}

func TestSetPendingError_FormOpenNotReplaced(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.OpenManualReport()

	assert.False(t, f.ctrl.SetPendingError(context.Background(), errors.New("late"), domain.SourceGlobalError, ""))
	st := f.ctrl.State()
	assert.True(t, st.Manual)
	assert.Nil(t, st.PendingError)
}

func TestTrackAction_KeepsLastTen(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < 12; i++ {
		f.ctrl.TrackAction(domain.UserAction{Kind: domain.ActionClick, Value: domain.StringPtr(fmt.Sprintf("a%d", i))})
	}

	actions := f.ctrl.State().RecentActions
	require.Len(t, actions, 10)
	for i, a := range actions {
		assert.Equal(t, fmt.Sprintf("a%d", i+2), *a.Value)
	}
}

func TestTrackAction_NavigationClearsHeldError(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.True(t, f.ctrl.SetPendingError(ctx, boom(), domain.SourceGlobalError, ""))
	require.True(t, f.ctrl.State().Toast.Visible)

	f.ctrl.TrackAction(domain.UserAction{Kind: domain.ActionClick, Value: domain.StringPtr("like")})
	require.NotNil(t, f.ctrl.State().PendingError)

	f.ctrl.TrackAction(domain.UserAction{Kind: domain.ActionNavigation, Value: domain.StringPtr("/free/2")})
	st := f.ctrl.State()
	assert.Nil(t, st.PendingError)
	assert.Nil(t, st.Screenshot)
	assert.False(t, st.Toast.Visible)
	assert.Len(t, st.RecentActions, 2)
}

func TestTrackAction_NavigationKeepsErrorWhileFormOpen(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.True(t, f.ctrl.SetPendingError(ctx, boom(), domain.SourceGlobalError, ""))
	require.True(t, f.ctrl.OpenModal())

	f.ctrl.TrackAction(domain.UserAction{Kind: domain.ActionNavigation, Value: domain.StringPtr("/free/2")})
	st := f.ctrl.State()
	require.NotNil(t, st.PendingError)
	assert.True(t, st.ModalOpen)
}

func TestRecover_HoldsBoundaryError(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	renderComments := func() {
		defer f.ctrl.Recover(ctx, "CommentList")
		var comments map[string][]string
		comments["root"] = append(comments["root"], "first")
	}
	assert.NotPanics(t, renderComments)

	st := f.ctrl.State()
	require.NotNil(t, st.PendingError)
	assert.Equal(t, domain.SourceBoundary, st.PendingError.Source)
	assert.Contains(t, st.PendingError.Message, "nil map")
	require.NotNil(t, st.PendingError.ComponentContext)
	assert.Equal(t, "CommentList", *st.PendingError.ComponentContext)
	require.NotNil(t, st.PendingError.Stack)
	assert.Contains(t, *st.PendingError.Stack, "TestRecover_HoldsBoundaryError")
	assert.True(t, st.Toast.ShowReportButton)
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	f := newFixture(t, true)
	func() {
		defer f.ctrl.Recover(context.Background(), "CommentList")
	}()
	assert.Nil(t, f.ctrl.State().PendingError)
}

func TestStart_HandlerPanicBecomesBoundaryError(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.Start(context.Background())
	f.bus.Subscribe("notifications", events.TopicOffline, func(events.Event) { panic("badge count overflow") })

	f.bus.PublishOffline("window")

	st := f.ctrl.State()
	require.NotNil(t, st.PendingError)
	assert.Equal(t, domain.SourceBoundary, st.PendingError.Source)
	assert.Equal(t, "badge count overflow", st.PendingError.Message)
	require.NotNil(t, st.PendingError.ComponentContext)
	assert.Equal(t, "notifications", *st.PendingError.ComponentContext)
}

func TestStart_BusEventsAndReconnectFlush(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	f.bus.PublishRejection("window", "promise rejected")
	st := f.ctrl.State()
	require.NotNil(t, st.PendingError)
	assert.Equal(t, domain.SourceUnhandledRejection, st.PendingError.Source)
	assert.Equal(t, "promise rejected", st.PendingError.Message)
	f.ctrl.CloseModal()

	for i := 0; i < 3; i++ {
		_, err := f.submitManual(t, fmt.Sprintf("%s #%d", longDesc, i))
		require.NoError(t, err)
	}
	require.Equal(t, 3, f.queue.Len())
	assert.Empty(t, f.transport.calls())

	f.signal.SetOnline(true)

	sent := f.transport.calls()
	assert.Len(t, sent, 3, "one delivery attempt per queued entry")
	assert.Zero(t, f.queue.Len())
	for i, p := range sent {
		assert.Equal(t, fmt.Sprintf("%s #%d", longDesc, i), *p.UserDescription)
	}
}

func TestStart_FlushesWhenOnline(t *testing.T) {
	f := newFixture(t, true)
	payload := domain.NewBugReportPayload(domain.PayloadParams{
		ReportID: "left-over",
		Error:    domain.ErrorEvent{Message: "old", Source: domain.SourceManual},
	})
	require.NoError(t, f.queue.Enqueue(payload))

	f.ctrl.Start(context.Background())
	require.Len(t, f.transport.calls(), 1)
	assert.Equal(t, "left-over", f.transport.calls()[0].ReportID)
	assert.Zero(t, f.queue.Len())
}

func TestStop_Unsubscribes(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.Start(context.Background())
	f.ctrl.Stop()

	f.bus.PublishError("window", errors.New("after stop"))
	assert.Nil(t, f.ctrl.State().PendingError)
	assert.Empty(t, f.bus.Subscriptions())
}

func TestOnChange_Observers(t *testing.T) {
	f := newFixture(t, true)

	var mu sync.Mutex
	var phases []Phase
	f.ctrl.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, st.Phase)
	})

	f.ctrl.OpenManualReport()
	f.ctrl.CloseModal()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseReviewing, PhaseIdle}, phases)
}
