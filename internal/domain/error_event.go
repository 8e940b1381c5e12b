package domain

// ErrorSource 에러가 가로채진 경로
type ErrorSource string

const (
	SourceBoundary           ErrorSource = "boundary"
	SourceGlobalError        ErrorSource = "global_error"
	SourceUnhandledRejection ErrorSource = "unhandled_rejection"
	SourceManual             ErrorSource = "manual"
)

// Valid reports whether s is one of the known sources
func (s ErrorSource) Valid() bool {
	switch s {
	case SourceBoundary, SourceGlobalError, SourceUnhandledRejection, SourceManual:
		return true
	}
	return false
}

// IsAutomatic is true for every source except manual reports
func (s ErrorSource) IsAutomatic() bool {
	return s != SourceManual
}

// ErrorEvent is a normalized failure as seen by the report pipeline.
// It lives from interception until the reporting flow closes.
type ErrorEvent struct {
	Message          string      `json:"message"`
	Stack            *string     `json:"stack"`
	Source           ErrorSource `json:"source"`
	ComponentContext *string     `json:"component_context"`
}

// StackOrEmpty returns the stack text or "" when absent
func (e ErrorEvent) StackOrEmpty() string {
	if e.Stack == nil {
		return ""
	}
	return *e.Stack
}

// StringPtr returns nil for an empty string, otherwise a pointer to a copy
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
