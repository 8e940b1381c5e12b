package reporter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/damoang/angple-bugreport/internal/dedup"
	"github.com/damoang/angple-bugreport/internal/delivery"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/events"
	"github.com/damoang/angple-bugreport/internal/identity"
	"github.com/damoang/angple-bugreport/internal/intake"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/queue"
	"github.com/damoang/angple-bugreport/internal/ratelimit"
	"github.com/damoang/angple-bugreport/internal/trail"
	"github.com/damoang/angple-bugreport/pkg/i18n"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// 기본값
const (
	DefaultToastDuration        = 5 * time.Second
	DefaultErrorToastDuration   = 30 * time.Second
	DefaultMinDescriptionLength = 10

	manualPrefix       = "[Manual Report] "
	manualMessageRunes = 100
)

// Capturer takes a best-effort screenshot; nil means none
type Capturer interface {
	Capture(ctx context.Context) *string
}

// Delivery sends a payload or queues it, and replays the queue
type Delivery interface {
	Deliver(ctx context.Context, payload domain.BugReportPayload) (delivery.Outcome, error)
	Flush(ctx context.Context) (queue.FlushResult, error)
}

// Deps are the collaborators of a Controller. Bus, Capturer, Metrics and
// Messages are optional.
type Deps struct {
	Trail       *trail.Recorder
	Dedup       *dedup.Cache
	Limiter     ratelimit.Limiter
	Capturer    Capturer
	Delivery    Delivery
	Identity    identity.Provider
	Environment Environment
	Bus         *events.Bus
	Messages    i18n.Translator
	Metrics     *metrics.Pipeline
	Clock       clockwork.Clock
	Logger      zerolog.Logger
}

// Options tune the controller
type Options struct {
	Locale               i18n.Locale
	SourceApp            string
	ToastDuration        time.Duration
	ErrorToastDuration   time.Duration
	MinDescriptionLength int
}

// Controller owns one reporting session: it gates intercepted errors,
// holds the one being reported, assembles payloads and hands them to
// delivery. All state changes happen under mu; screenshot and network
// work run outside it.
type Controller struct {
	deps Deps
	opts Options
	name string

	mu          sync.Mutex
	pending     *domain.ErrorEvent
	modalOpen   bool
	manual      bool
	screenshot  *string
	submitting  bool
	failed      bool
	description string
	session     uint64
	toast       domain.Toast
	toastGen    uint64
	toastTimer  clockwork.Timer
	observers   []func(State)
	started     bool
}

// New 생성자
func New(deps Deps, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Trail == nil {
		deps.Trail = trail.NewRecorder(trail.DefaultCapacity, deps.Clock, nil)
	}
	if deps.Dedup == nil {
		deps.Dedup = dedup.NewCache(dedup.DefaultWindow, deps.Clock)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewWindow(ratelimit.DefaultMax, ratelimit.DefaultWindow, deps.Clock)
	}
	if deps.Identity == nil {
		deps.Identity = identity.NewStatic("", "")
	}
	if deps.Environment == nil {
		deps.Environment = NewHostEnvironment(DefaultBrowserInfo("", ""), nil)
	}
	if deps.Messages == nil {
		deps.Messages = i18n.Default()
	}
	if opts.Locale == "" {
		opts.Locale = i18n.LocaleKo
	}
	if opts.SourceApp == "" {
		opts.SourceApp = domain.DefaultSourceApp
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	if opts.ErrorToastDuration <= 0 {
		opts.ErrorToastDuration = DefaultErrorToastDuration
	}
	if opts.MinDescriptionLength <= 0 {
		opts.MinDescriptionLength = DefaultMinDescriptionLength
	}
	return &Controller{
		deps: deps,
		opts: opts,
		name: "reporter-" + uuid.NewString(),
	}
}

// Start subscribes to the runtime events and flushes the offline queue when
// online. The context is used for work triggered by those events.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if bus := c.deps.Bus; bus != nil {
		bus.Subscribe(c.name, events.TopicError, func(e events.Event) {
			c.SetPendingError(ctx, e.Err, domain.SourceGlobalError, e.Context)
		})
		bus.Subscribe(c.name, events.TopicUnhandledRejection, func(e events.Event) {
			c.SetPendingError(ctx, e.Err, domain.SourceUnhandledRejection, e.Context)
		})
		bus.Subscribe(c.name, events.TopicBoundary, func(e events.Event) {
			c.SetPendingError(ctx, e.Err, domain.SourceBoundary, e.Context)
		})
		bus.Subscribe(c.name, events.TopicOnline, func(events.Event) {
			c.Flush(ctx)
		})
	}
	c.Flush(ctx)
}

// Stop unsubscribes and cancels the pending toast timer
func (c *Controller) Stop() {
	if c.deps.Bus != nil {
		c.deps.Bus.Unsubscribe(c.name)
	}
	c.mu.Lock()
	c.started = false
	c.stopToastTimerLocked()
	c.mu.Unlock()
}

// Flush replays the offline queue. Errors are logged, never returned.
func (c *Controller) Flush(ctx context.Context) queue.FlushResult {
	if c.deps.Delivery == nil {
		return queue.FlushResult{}
	}
	res, err := c.deps.Delivery.Flush(ctx)
	if err != nil {
		c.deps.Logger.Error().Err(err).Msg("offline queue flush failed")
	}
	c.deps.Metrics.Flushed(res.Delivered, res.Requeued)
	return res
}

// SetPendingError is the entry point for automatic errors. v may be any
// thrown value or a domain.ErrorEvent. It reports whether the error was
// surfaced to the user.
func (c *Controller) SetPendingError(ctx context.Context, v any, source domain.ErrorSource, componentContext string) bool {
	event, ok := v.(domain.ErrorEvent)
	if !ok {
		event = intake.Normalize(v, source, componentContext)
	}
	log := c.deps.Logger.With().Str("source", string(event.Source)).Str("message", event.Message).Logger()
	c.deps.Metrics.Intercepted(string(event.Source))

	c.mu.Lock()
	busy := c.modalOpen
	c.mu.Unlock()
	if busy {
		// 신고 폼이 열려 있는 동안에는 새 에러로 덮어쓰지 않는다
		log.Debug().Msg("report form open, error not surfaced")
		return false
	}

	if c.deps.Dedup.ShouldSuppress(event) {
		c.deps.Metrics.Suppressed(metrics.ReasonDuplicate)
		log.Debug().Msg("duplicate error suppressed")
		return false
	}
	if c.deps.Limiter.IsRateLimited(ctx) {
		c.deps.Metrics.Suppressed(metrics.ReasonRateLimited)
		log.Info().Msg("rate limited, error dropped")
		c.mu.Lock()
		c.showToastLocked(c.msg(i18n.KeyRateLimited), domain.ToastInfo, false, c.opts.ToastDuration)
		c.mu.Unlock()
		c.notify()
		return false
	}

	shot := c.capture(ctx)

	c.mu.Lock()
	if c.modalOpen {
		c.mu.Unlock()
		return false
	}
	c.session++
	c.pending = &event
	c.manual = false
	c.screenshot = shot
	c.description = ""
	c.failed = false
	c.showToastLocked(c.msg(i18n.KeyErrorDetected), domain.ToastError, true, c.opts.ErrorToastDuration)
	c.mu.Unlock()

	log.Info().Bool("screenshot", shot != nil).Msg("error surfaced")
	c.notify()
	return true
}

// Recover is an error boundary for host code. Defer it directly around a
// component's work; a panic is stopped there and surfaced as a boundary
// error carrying the panicking goroutine's stack.
//
//	defer ctrl.Recover(ctx, "CommentList")
func (c *Controller) Recover(ctx context.Context, component string) {
	r := recover()
	if r == nil {
		return
	}
	event := intake.NormalizePanic(r, domain.SourceBoundary, component)
	c.SetPendingError(ctx, event, domain.SourceBoundary, component)
}

// OpenModal opens the report form for the held error. It returns false
// when there is none.
func (c *Controller) OpenModal() bool {
	c.mu.Lock()
	if c.pending == nil || c.manual {
		c.mu.Unlock()
		return false
	}
	c.modalOpen = true
	c.hideToastLocked()
	c.mu.Unlock()
	c.notify()
	return true
}

// CloseModal cancels the session. The queue and the limiter are untouched.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.notify()
}

// OpenManualReport opens an empty report form. No gates apply here; the
// limiter is checked on submit.
func (c *Controller) OpenManualReport() {
	c.mu.Lock()
	c.resetLocked()
	c.manual = true
	c.modalOpen = true
	c.hideToastLocked()
	c.mu.Unlock()
	c.notify()
}

// CaptureScreenshot takes a screenshot for the open form
func (c *Controller) CaptureScreenshot(ctx context.Context) *string {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	shot := c.capture(ctx)

	c.mu.Lock()
	if c.session == session {
		c.screenshot = shot
	}
	c.mu.Unlock()
	c.notify()
	return shot
}

// SetScreenshot replaces (or clears, with nil) the attached screenshot
func (c *Controller) SetScreenshot(shot *string) {
	c.mu.Lock()
	c.screenshot = shot
	c.mu.Unlock()
	c.notify()
}

// SetDescription stores the form text as the user types
func (c *Controller) SetDescription(description string) {
	c.mu.Lock()
	c.description = description
	c.mu.Unlock()
	c.notify()
}

// SubmitReport assembles and delivers the report of the open form.
// Delivered and queued reports close the session; a rejected one leaves the
// form open with the description kept.
func (c *Controller) SubmitReport(ctx context.Context, description string, includeScreenshot bool) (SubmitResult, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return SubmitResult{}, ErrSubmitting
	}
	if !c.modalOpen || (!c.manual && c.pending == nil) {
		c.mu.Unlock()
		return SubmitResult{}, ErrNothingToReport
	}
	c.description = description
	trimmed := strings.TrimSpace(description)
	if c.manual && utf8.RuneCountInString(trimmed) < c.opts.MinDescriptionLength {
		c.showToastLocked(c.msg(i18n.KeyDescriptionTooShort, c.opts.MinDescriptionLength), domain.ToastInfo, false, c.opts.ToastDuration)
		c.mu.Unlock()
		c.notify()
		return SubmitResult{}, ErrDescriptionTooShort
	}

	var event domain.ErrorEvent
	if c.manual {
		event = manualEvent(trimmed)
	} else {
		event = *c.pending
	}
	var shot *string
	if includeScreenshot {
		shot = c.screenshot
	}
	session := c.session
	c.submitting = true
	c.mu.Unlock()
	c.notify()

	if c.deps.Limiter.IsRateLimited(ctx) {
		c.deps.Metrics.Submission("rate_limited")
		c.mu.Lock()
		c.submitting = false
		c.showToastLocked(c.msg(i18n.KeyRateLimited), domain.ToastInfo, false, c.opts.ToastDuration)
		c.mu.Unlock()
		c.notify()
		return SubmitResult{}, ErrRateLimited
	}

	payload := domain.NewBugReportPayload(domain.PayloadParams{
		ReportID:    uuid.NewString(),
		Error:       event,
		Screenshot:  shot,
		Identity:    c.deps.Identity.Current(ctx),
		Description: domain.StringPtr(trimmed),
		Actions:     c.deps.Trail.Snapshot(),
		Browser:     c.deps.Environment.BrowserInfo(),
		URL:         c.deps.Environment.CurrentURL(),
		SourceApp:   c.opts.SourceApp,
		CreatedAt:   c.deps.Clock.Now(),
	})
	result := SubmitResult{ReportID: payload.ReportID}

	outcome, err := c.deliver(ctx, payload)
	result.Outcome = outcome
	if outcome.Accepted() {
		c.deps.Limiter.RecordSubmission(ctx)
	}
	c.deps.Metrics.Submission(string(outcome))

	log := c.deps.Logger.With().Str("report_id", payload.ReportID).Str("outcome", string(outcome)).Logger()

	c.mu.Lock()
	c.submitting = false
	current := c.session == session
	switch outcome {
	case delivery.OutcomeDelivered:
		if current {
			c.resetLocked()
		}
		c.showToastLocked(c.msg(i18n.KeyReportSent), domain.ToastSuccess, false, c.opts.ToastDuration)
	case delivery.OutcomeQueued:
		if current {
			c.resetLocked()
		}
		c.showToastLocked(c.msg(i18n.KeyReportQueued), domain.ToastInfo, false, c.opts.ToastDuration)
	case delivery.OutcomeDropped:
		if current {
			c.failed = true
		}
		c.showToastLocked(c.msg(i18n.KeyStorageFull), domain.ToastError, false, c.opts.ToastDuration)
	default:
		if current {
			c.failed = true
		}
		c.showToastLocked(c.msg(i18n.KeyReportFailed), domain.ToastError, false, c.opts.ToastDuration)
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		log.Warn().Err(err).Msg("report submission failed")
		return result, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	log.Info().Msg("report submitted")
	return result, nil
}

// DismissToast hides the notice. A held error stays reportable.
func (c *Controller) DismissToast() {
	c.mu.Lock()
	c.hideToastLocked()
	c.mu.Unlock()
	c.notify()
}

// TrackAction records a user interaction in the trail. Navigating away
// drops a held error whose form is not open.
func (c *Controller) TrackAction(action domain.UserAction) {
	c.deps.Trail.Record(action)
	if action.Kind == domain.ActionNavigation {
		c.mu.Lock()
		if c.pending != nil && !c.modalOpen {
			c.resetLocked()
			if c.toast.ShowReportButton {
				c.hideToastLocked()
			}
		}
		c.mu.Unlock()
	}
	c.notify()
}

// OnChange registers an observer called with every new state
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns a snapshot of the UI state
func (c *Controller) State() State {
	c.mu.Lock()
	st := State{
		Phase:       c.phaseLocked(),
		ModalOpen:   c.modalOpen,
		Manual:      c.manual,
		Screenshot:  c.screenshot,
		Submitting:  c.submitting,
		Description: c.description,
		Toast:       c.toast,
	}
	if c.pending != nil {
		e := *c.pending
		st.PendingError = &e
	}
	c.mu.Unlock()
	st.RecentActions = c.deps.Trail.Snapshot()
	return st
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.submitting:
		return PhaseSubmitting
	case c.modalOpen && c.failed:
		return PhaseFailed
	case c.modalOpen:
		return PhaseReviewing
	case c.pending != nil:
		return PhaseErrorIntercepted
	}
	return PhaseIdle
}

func (c *Controller) deliver(ctx context.Context, payload domain.BugReportPayload) (outcome delivery.Outcome, err error) {
	if c.deps.Delivery == nil {
		return delivery.OutcomeRejected, fmt.Errorf("no delivery configured")
	}
	defer func() {
		if r := recover(); r != nil {
			outcome, err = delivery.OutcomeRejected, fmt.Errorf("delivery panic: %v", r)
		}
	}()
	return c.deps.Delivery.Deliver(ctx, payload)
}

func (c *Controller) capture(ctx context.Context) *string {
	if c.deps.Capturer == nil {
		return nil
	}
	shot := c.deps.Capturer.Capture(ctx)
	if shot == nil {
		c.deps.Metrics.ScreenshotFailed()
	}
	return shot
}

func (c *Controller) resetLocked() {
	c.session++
	c.pending = nil
	c.modalOpen = false
	c.manual = false
	c.screenshot = nil
	c.description = ""
	c.failed = false
}

func (c *Controller) showToastLocked(message string, variant domain.ToastVariant, reportButton bool, d time.Duration) {
	c.stopToastTimerLocked()
	c.toastGen++
	gen := c.toastGen
	c.toast = domain.Toast{Message: message, Variant: variant, Visible: true, ShowReportButton: reportButton}
	c.toastTimer = c.deps.Clock.AfterFunc(d, func() {
		c.mu.Lock()
		if c.toastGen != gen {
			c.mu.Unlock()
			return
		}
		c.toast.Visible = false
		c.toastTimer = nil
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) hideToastLocked() {
	c.stopToastTimerLocked()
	c.toastGen++
	c.toast.Visible = false
}

func (c *Controller) stopToastTimerLocked() {
	if c.toastTimer != nil {
		c.toastTimer.Stop()
		c.toastTimer = nil
	}
}

func (c *Controller) msg(key string, args ...interface{}) string {
	return c.deps.Messages.T(c.opts.Locale, key, args...)
}

func (c *Controller) notify() {
	c.mu.Lock()
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()
	if len(observers) == 0 {
		return
	}
	st := c.State()
	for _, fn := range observers {
		fn(st)
	}
}

func manualEvent(description string) domain.ErrorEvent {
	msg := description
	if utf8.RuneCountInString(msg) > manualMessageRunes {
		msg = string([]rune(msg)[:manualMessageRunes])
	}
	return domain.ErrorEvent{
		Message: manualPrefix + msg,
		Source:  domain.SourceManual,
	}
}
