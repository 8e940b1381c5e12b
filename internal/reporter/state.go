package reporter

import (
	"errors"

	"github.com/damoang/angple-bugreport/internal/delivery"
	"github.com/damoang/angple-bugreport/internal/domain"
)

// Phase 리포트 세션 상태
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseErrorIntercepted Phase = "error_intercepted"
	PhaseReviewing        Phase = "reviewing"
	PhaseSubmitting       Phase = "submitting"
	PhaseFailed           Phase = "still_open_on_failure"
)

var (
	ErrDescriptionTooShort = errors.New("reporter: description too short")
	ErrRateLimited         = errors.New("reporter: too many reports")
	ErrSubmitting          = errors.New("reporter: submission already in progress")
	ErrNothingToReport     = errors.New("reporter: no report form open")
	ErrDeliveryFailed      = errors.New("reporter: delivery failed")
)

// State is the UI-facing projection of the controller
type State struct {
	Phase         Phase
	PendingError  *domain.ErrorEvent
	ModalOpen     bool
	Manual        bool
	Screenshot    *string
	Submitting    bool
	Description   string
	Toast         domain.Toast
	RecentActions []domain.UserAction
}

// SubmitResult 제출 결과
type SubmitResult struct {
	ReportID string
	Outcome  delivery.Outcome
}
