package domain

import (
	"time"
)

// DefaultSourceApp is the fixed application identifier stamped on every report
const DefaultSourceApp = "angple-web"

// Identity 신고자 정보 (익명 허용)
type Identity struct {
	ID    *string `json:"id"`
	Email *string `json:"email"`
}

// BrowserInfo describes the environment the report was produced in
type BrowserInfo struct {
	UserAgent      string `json:"user_agent"`
	Language       string `json:"language"`
	Platform       string `json:"platform"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
	Timezone       string `json:"timezone"`
	Online         bool   `json:"online"`
}

// BugReportPayload is the wire-level unit posted to the ingestion endpoint.
// Build it with NewBugReportPayload; it is not modified afterwards.
type BugReportPayload struct {
	ReportID        string       `json:"report_id" binding:"required"`
	ErrorMessage    string       `json:"error_message" binding:"required"`
	ErrorStack      *string      `json:"error_stack"`
	ComponentStack  *string      `json:"component_stack"`
	ErrorSource     ErrorSource  `json:"error_source" binding:"required"`
	Screenshot      *string      `json:"screenshot"`
	UserID          *string      `json:"user_id"`
	UserEmail       *string      `json:"user_email"`
	UserDescription *string      `json:"user_description"`
	UserActions     []UserAction `json:"user_actions"`
	BrowserInfo     BrowserInfo  `json:"browser_info"`
	URL             string       `json:"url"`
	SourceApp       string       `json:"source_app" binding:"required"`
	CreatedAt       time.Time    `json:"created_at"`
}

// PayloadParams collects everything needed to assemble a payload
type PayloadParams struct {
	ReportID    string
	Error       ErrorEvent
	Screenshot  *string
	Identity    Identity
	Description *string
	Actions     []UserAction
	Browser     BrowserInfo
	URL         string
	SourceApp   string
	CreatedAt   time.Time
}

// NewBugReportPayload assembles a payload, copying the action snapshot so
// later trail writes cannot leak into it.
func NewBugReportPayload(p PayloadParams) BugReportPayload {
	actions := make([]UserAction, len(p.Actions))
	copy(actions, p.Actions)

	sourceApp := p.SourceApp
	if sourceApp == "" {
		sourceApp = DefaultSourceApp
	}

	return BugReportPayload{
		ReportID:        p.ReportID,
		ErrorMessage:    p.Error.Message,
		ErrorStack:      p.Error.Stack,
		ComponentStack:  p.Error.ComponentContext,
		ErrorSource:     p.Error.Source,
		Screenshot:      p.Screenshot,
		UserID:          p.Identity.ID,
		UserEmail:       p.Identity.Email,
		UserDescription: p.Description,
		UserActions:     actions,
		BrowserInfo:     p.Browser,
		URL:             p.URL,
		SourceApp:       sourceApp,
		CreatedAt:       p.CreatedAt.UTC(),
	}
}

// QueueEntry 오프라인 큐에 저장된 리포트
type QueueEntry struct {
	Payload  BugReportPayload `json:"payload"`
	QueuedAt time.Time        `json:"queued_at"`
	Attempts int              `json:"attempts"`
}
