package ingest

import (
	"time"

	"github.com/damoang/angple-bugreport/internal/domain"
)

// Record is a stored bug report (bug_reports 테이블)
type Record struct {
	ID              uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID        string              `gorm:"column:report_id;size:36;uniqueIndex" json:"report_id"`
	ErrorMessage    string              `gorm:"column:error_message;type:text" json:"error_message"`
	ErrorStack      *string             `gorm:"column:error_stack;type:text" json:"error_stack"`
	ComponentStack  *string             `gorm:"column:component_stack;type:text" json:"component_stack"`
	ErrorSource     domain.ErrorSource  `gorm:"column:error_source;size:32;index" json:"error_source"`
	ScreenshotURL   *string             `gorm:"column:screenshot_url;size:1024" json:"screenshot_url"`
	Screenshot      *string             `gorm:"column:screenshot;type:mediumtext" json:"screenshot,omitempty"` // 스토리지 미사용 시 data URI
	UserID          *string             `gorm:"column:user_id;size:64;index" json:"user_id"`
	UserEmail       *string             `gorm:"column:user_email;size:255" json:"user_email"`
	UserDescription *string             `gorm:"column:user_description;type:text" json:"user_description"`
	UserActions     []domain.UserAction `gorm:"column:user_actions;type:text;serializer:json" json:"user_actions"`
	BrowserInfo     domain.BrowserInfo  `gorm:"column:browser_info;type:text;serializer:json" json:"browser_info"`
	URL             string              `gorm:"column:url;size:2048" json:"url"`
	SourceApp       string              `gorm:"column:source_app;size:64;index" json:"source_app"`
	ClientIP        string              `gorm:"column:client_ip;size:45" json:"client_ip"`
	ReportedAt      time.Time           `gorm:"column:reported_at" json:"reported_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;index" json:"created_at"`
}

// TableName overrides the table name
func (Record) TableName() string {
	return "bug_reports"
}

// NewRecord maps a received payload to a record
func NewRecord(p domain.BugReportPayload, clientIP string, now time.Time) *Record {
	reportedAt := p.CreatedAt
	if reportedAt.IsZero() {
		reportedAt = now
	}
	return &Record{
		ReportID:        p.ReportID,
		ErrorMessage:    p.ErrorMessage,
		ErrorStack:      p.ErrorStack,
		ComponentStack:  p.ComponentStack,
		ErrorSource:     p.ErrorSource,
		Screenshot:      p.Screenshot,
		UserID:          p.UserID,
		UserEmail:       p.UserEmail,
		UserDescription: p.UserDescription,
		UserActions:     p.UserActions,
		BrowserInfo:     p.BrowserInfo,
		URL:             p.URL,
		SourceApp:       p.SourceApp,
		ClientIP:        clientIP,
		ReportedAt:      reportedAt.UTC(),
		CreatedAt:       now.UTC(),
	}
}

// HasScreenshot is true when an image is stored inline or in object storage
func (r *Record) HasScreenshot() bool {
	return r.ScreenshotURL != nil || r.Screenshot != nil
}

// Summary is the compact form pushed to the live feed and returned on create
type Summary struct {
	ID            uint64             `json:"id"`
	ReportID      string             `json:"report_id"`
	ErrorMessage  string             `json:"error_message"`
	ErrorSource   domain.ErrorSource `json:"error_source"`
	URL           string             `json:"url"`
	SourceApp     string             `json:"source_app"`
	UserID        *string            `json:"user_id"`
	HasScreenshot bool               `json:"has_screenshot"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Summary returns the compact form of r
func (r *Record) Summary() Summary {
	return Summary{
		ID:            r.ID,
		ReportID:      r.ReportID,
		ErrorMessage:  r.ErrorMessage,
		ErrorSource:   r.ErrorSource,
		URL:           r.URL,
		SourceApp:     r.SourceApp,
		UserID:        r.UserID,
		HasScreenshot: r.HasScreenshot(),
		CreatedAt:     r.CreatedAt,
	}
}
