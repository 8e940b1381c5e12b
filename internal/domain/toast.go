package domain

// ToastVariant 알림 종류
type ToastVariant string

const (
	ToastError   ToastVariant = "error"
	ToastSuccess ToastVariant = "success"
	ToastInfo    ToastVariant = "info"
)

// Toast is the transient notice projected to the UI. Only one is active at a time.
type Toast struct {
	Message          string       `json:"message"`
	Variant          ToastVariant `json:"variant"`
	Visible          bool         `json:"visible"`
	ShowReportButton bool         `json:"show_report_button"`
}
