package domain

// ActionKind 사용자 행동 종류
type ActionKind string

const (
	ActionClick      ActionKind = "click"
	ActionNavigation ActionKind = "navigation"
	ActionInput      ActionKind = "input"
	ActionSubmit     ActionKind = "submit"
	ActionAPIError   ActionKind = "api_error"
)

// Valid reports whether k is one of the known action kinds
func (k ActionKind) Valid() bool {
	switch k {
	case ActionClick, ActionNavigation, ActionInput, ActionSubmit, ActionAPIError:
		return true
	}
	return false
}

// UserAction is one entry of the action trail attached to reports
type UserAction struct {
	Kind      ActionKind `json:"type"`
	Target    *string    `json:"target"`
	Value     *string    `json:"value"`
	Timestamp int64      `json:"timestamp"` // unix ms
	URL       string     `json:"url"`
}
